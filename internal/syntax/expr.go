package syntax

// Expr is one of MethodCall, Call, Path, Field, Let or Group.
type Expr interface {
	exprNode()
}

// MethodCall is `receiver.method(args)`. Location points at the method name.
type MethodCall struct {
	Receiver Expr
	Method   string
	Args     []Expr
	Location Location
}

// Call is a call whose callee is not a method selector, e.g. `aws_sdk_sqs::Client::new(&c)`.
type Call struct {
	Callee   Expr
	Args     []Expr
	Location Location
}

// Path is an identifier or a qualified path such as `self` or `aws_sdk_sqs::Client`.
type Path struct {
	Segments []string
	Location Location
}

// Field is a field access. Named is false for positional access such as `pair.0`.
type Field struct {
	Operand  Expr
	Name     string
	Named    bool
	Location Location
}

// Let binds the value of Init to Name. Name is empty when the pattern is not
// a plain identifier; Init is nil for declarations without an initializer.
type Let struct {
	Name     string
	Init     Expr
	Location Location
}

// Group holds every other expression shape: blocks, closures, literals,
// operators and so on. Only its children matter to the analysis.
type Group struct {
	Children []Expr
}

func (*MethodCall) exprNode() {}
func (*Call) exprNode()       {}
func (*Path) exprNode()       {}
func (*Field) exprNode()      {}
func (*Let) exprNode()        {}
func (*Group) exprNode()      {}

// Last returns the final segment of the path.
func (p *Path) Last() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}

// Children returns the direct sub-expressions of e in evaluation order.
func Children(e Expr) []Expr {
	var out []Expr
	switch n := e.(type) {
	case *MethodCall:
		out = append(out, n.Receiver)
		out = append(out, n.Args...)
	case *Call:
		out = append(out, n.Callee)
		out = append(out, n.Args...)
	case *Field:
		out = append(out, n.Operand)
	case *Let:
		out = append(out, n.Init)
	case *Group:
		out = append(out, n.Children...)
	case *Path:
		return nil
	default:
		return nil
	}

	kept := out[:0]
	for _, c := range out {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return kept
}

// Inspect traverses the expressions in depth-first order, calling f for each
// node before its children. Children are skipped when f returns false.
func Inspect(exprs []Expr, f func(Expr) bool) {
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if f(e) {
			Inspect(Children(e), f)
		}
	}
}
