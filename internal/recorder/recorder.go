// Package recorder flattens a function body into the list of method calls
// it makes.
package recorder

import (
	"slices"

	"reqprops/internal/syntax"
)

// CallSite is one recorded method call. Receiver is empty when the receiver
// is not a plain path or a named field.
type CallSite struct {
	Method   string
	Receiver string
	Location syntax.Location
}

// Record walks the body depth first. Receivers and arguments are visited
// before the call that uses them, so the walk yields calls in evaluation
// order. The result is returned latest-evaluated first: for
// `a.m1().m2().m3()` the sites are m3, m2, m1.
func Record(body []syntax.Expr) []CallSite {
	var sites []CallSite
	for _, e := range body {
		sites = visit(e, sites)
	}
	slices.Reverse(sites)
	return sites
}

func visit(e syntax.Expr, sites []CallSite) []CallSite {
	if e == nil {
		return sites
	}
	for _, child := range syntax.Children(e) {
		sites = visit(child, sites)
	}
	if mc, ok := e.(*syntax.MethodCall); ok {
		sites = append(sites, CallSite{
			Method:   mc.Method,
			Receiver: receiverBinding(mc.Receiver),
			Location: mc.Location,
		})
	}
	return sites
}

func receiverBinding(receiver syntax.Expr) string {
	switch r := receiver.(type) {
	case *syntax.Path:
		return r.Last()
	case *syntax.Field:
		if r.Named {
			return r.Name
		}
		return ""
	case *syntax.MethodCall, *syntax.Call, *syntax.Let, *syntax.Group:
		return ""
	default:
		return ""
	}
}

// Methods returns the method names of the sites, in the sites' order.
func Methods(sites []CallSite) []string {
	names := make([]string, len(sites))
	for i, s := range sites {
		names[i] = s.Method
	}
	return names
}
