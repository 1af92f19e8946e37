// Package report turns findings into compiler-style diagnostics and writes
// them in the requested format.
package report

import (
	"fmt"
	"sort"
	"strings"

	"reqprops/internal/analysis"
	"reqprops/internal/syntax"
)

type Code string

const (
	CodeMissing   Code = "missing"
	CodeAmbiguous Code = "ambiguous"
	CodeConfig    Code = "config"
)

// maxListed bounds the services named in an ambiguity message.
const maxListed = 5

// Diagnostic is one reportable problem attached to a source location.
type Diagnostic struct {
	Location syntax.Location `json:"location"`
	Code     Code            `json:"code"`
	Message  string          `json:"message"`
}

// FromFinding formats a finding.
func FromFinding(f analysis.Finding) Diagnostic {
	d := Diagnostic{Location: f.Location}
	switch f.Kind {
	case analysis.KindAmbiguous:
		d.Code = CodeAmbiguous
		d.Message = AmbiguousMessage(f.Method, f.Candidates)
	default:
		d.Code = CodeMissing
		d.Message = MissingMessage(f.Method, f.Service, f.Missing)
	}
	return d
}

// FromConfigError formats a directive problem.
func FromConfigError(e *analysis.ConfigError) Diagnostic {
	return Diagnostic{Location: e.Location, Code: CodeConfig, Message: e.Err.Error()}
}

func MissingMessage(method, service string, missing []string) string {
	return fmt.Sprintf("method `%s` (from %s) is missing required argument(s): %s",
		method, service, strings.Join(missing, ", "))
}

func AmbiguousMessage(method string, candidates []string) string {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	listed := strings.Join(sorted, ", ")
	if len(sorted) > maxListed {
		listed = strings.Join(sorted[:maxListed], ", ") + "... (abbreviated list)"
	}
	suggestion := "sqs"
	if len(sorted) > 0 {
		suggestion = sorted[0]
	}
	return fmt.Sprintf("method `%s` is used in multiple services: %s; specify the intended service explicitly, e.g. `services = %s`",
		method, listed, suggestion)
}

// Sort orders diagnostics by location, then code and message.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.Location != b.Location {
			return a.Location.Less(b.Location)
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})
}
