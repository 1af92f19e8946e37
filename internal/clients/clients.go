// Package clients infers which service clients a function works with from
// its parameter types and local constructor calls.
package clients

import (
	"sort"
	"strings"

	"reqprops/internal/syntax"
)

// Hint is a syntactic clue about a client. Binding or Service may be empty,
// never both.
type Hint struct {
	Binding string `json:"binding,omitempty"`
	Service string `json:"service,omitempty"`
}

// Set is a set of hints.
type Set map[Hint]struct{}

// Add inserts a hint. Hints without binding and service are ignored.
func (s Set) Add(h Hint) {
	if h.Binding == "" && h.Service == "" {
		return
	}
	s[h] = struct{}{}
}

// Sorted returns the hints ordered by binding, then service.
func (s Set) Sorted() []Hint {
	out := make([]Hint, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Binding != out[j].Binding {
			return out[i].Binding < out[j].Binding
		}
		return out[i].Service < out[j].Service
	})
	return out
}

// HasBinding reports whether any hint is bound to the name.
func (s Set) HasBinding(name string) bool {
	for h := range s {
		if h.Binding == name {
			return true
		}
	}
	return false
}

// Infer collects hints from the function's parameters and from every local
// initialised with a client constructor, including locals inside closures
// and nested blocks.
func Infer(fn *syntax.Function, dialect syntax.Dialect) Set {
	hints := make(Set)

	for _, p := range fn.Params {
		if h, ok := fromParam(p, dialect); ok {
			hints.Add(h)
		}
	}

	syntax.Inspect(fn.Body, func(e syntax.Expr) bool {
		if let, ok := e.(*syntax.Let); ok {
			if h, ok := fromLocal(let, dialect); ok {
				hints.Add(h)
			}
		}
		return true
	})

	return hints
}

func fromParam(p syntax.Param, dialect syntax.Dialect) (Hint, bool) {
	n := len(p.TypePath)
	if n == 0 || p.TypePath[n-1] != dialect.ClientType {
		return Hint{}, false
	}
	h := Hint{Binding: p.Name}
	if n >= 2 {
		if service, ok := strings.CutPrefix(p.TypePath[n-2], dialect.NamespacePrefix); ok && service != "" {
			h.Service = service
		}
	}
	return h, h.Binding != "" || h.Service != ""
}

func fromLocal(let *syntax.Let, dialect syntax.Dialect) (Hint, bool) {
	call, ok := let.Init.(*syntax.Call)
	if !ok {
		return Hint{}, false
	}
	callee, ok := call.Callee.(*syntax.Path)
	if !ok || !dialect.IsConstructor(callee.Segments) {
		return Hint{}, false
	}

	h := Hint{Binding: let.Name}
	for _, segment := range callee.Segments {
		if service, ok := strings.CutPrefix(segment, dialect.NamespacePrefix); ok && service != "" {
			h.Service = service
			break
		}
	}
	return h, h.Binding != "" || h.Service != ""
}
