// Package resolver decides which service's requirements apply to a method
// that the knowledge base lists under more than one service.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"reqprops/internal/clients"
	"reqprops/internal/knowledge"
)

// ErrAmbiguous is the sentinel wrapped by *AmbiguousError.
var ErrAmbiguous = errors.New("ambiguous service")

// AmbiguousError is returned when no rule picks a service.
type AmbiguousError struct {
	Method     string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("method %s is defined by %s", e.Method, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguous
}

// Query is everything a rule may look at for one anchor.
type Query struct {
	Candidates knowledge.Candidates
	// Receiver is the anchor's receiver binding, empty when unknown.
	Receiver string
	// Selected are the services named by the function's directive, in order.
	Selected []string
	Hints    []clients.Hint
}

// Resolution is the outcome of a rule. Service is a label: a single service
// name, or the comma-joined names of services sharing identical requirements.
type Resolution struct {
	Service  string
	Required []string
	Rule     string
}

// Rule is one step of the precedence order.
type Rule interface {
	Name() string
	Resolve(q Query) (Resolution, bool)
}

// Chain evaluates rules in order and stops at the first one that answers.
type Chain struct {
	rules []Rule
}

func NewChain(rules ...Rule) *Chain {
	return &Chain{rules: rules}
}

// NewDefaultChain returns the fixed precedence order: single service,
// identical requirements, selected services, receiver name, client hints.
func NewDefaultChain(matcher NameMatcher) *Chain {
	return NewChain(
		SingleService{},
		IdenticalRequirements{},
		SelectedServices{Matcher: matcher},
		ReceiverName{Matcher: matcher},
		ClientHints{Matcher: matcher},
	)
}

// Resolve returns the first rule's answer, or an *AmbiguousError listing
// every candidate.
func (c *Chain) Resolve(q Query) (Resolution, error) {
	for _, r := range c.rules {
		if res, ok := r.Resolve(q); ok {
			res.Rule = r.Name()
			return res, nil
		}
	}
	return Resolution{}, &AmbiguousError{Method: q.Candidates.Method, Candidates: q.Candidates.Services}
}

// Rules returns the rule names in evaluation order.
func (c *Chain) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return names
}
