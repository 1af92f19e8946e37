// Package syntax is the language-neutral model the frontends produce and the
// analysis consumes: functions, their parameters and a small set of
// expression shapes.
package syntax

import "fmt"

// Location points at a position in a source file. Line and Column are 1-based.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Less orders locations by file, line and column.
func (l Location) Less(other Location) bool {
	if l.File != other.File {
		return l.File < other.File
	}
	if l.Line != other.Line {
		return l.Line < other.Line
	}
	return l.Column < other.Column
}

// Param is a typed function parameter. TypePath is the type's path with
// references and pointers removed, e.g. [aws_sdk_sqs Client].
type Param struct {
	Name     string
	TypePath []string
}

// Directive is the per-function marker. Services is empty when the marker
// carries no hint. Err is set when the marker's arguments could not be parsed.
type Directive struct {
	Services []string
	Location Location
	Err      error
}

// Function is one analysable unit.
type Function struct {
	Name      string
	Language  string
	Location  Location
	StartLine int
	EndLine   int
	Params    []Param
	Body      []Expr
	Directive *Directive
}

// Marked reports whether the function carries the directive.
func (f *Function) Marked() bool {
	return f.Directive != nil
}

// Services returns the directive's service hints, if any.
func (f *Function) Services() []string {
	if f.Directive == nil {
		return nil
	}
	return f.Directive.Services
}
