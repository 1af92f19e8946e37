package resolver

import (
	"slices"
	"strings"

	"reqprops/internal/clients"
)

func resolved(q Query, service string) Resolution {
	return Resolution{Service: service, Required: slices.Clone(q.Candidates.Required[service])}
}

// SingleService answers when only one service defines the method.
type SingleService struct{}

func (SingleService) Name() string { return "single-service" }

func (SingleService) Resolve(q Query) (Resolution, bool) {
	if len(q.Candidates.Services) != 1 {
		return Resolution{}, false
	}
	return resolved(q, q.Candidates.Services[0]), true
}

// IdenticalRequirements answers when every service requires the same
// arguments. The label joins all service names.
type IdenticalRequirements struct{}

func (IdenticalRequirements) Name() string { return "identical-requirements" }

func (IdenticalRequirements) Resolve(q Query) (Resolution, bool) {
	services := q.Candidates.Services
	if len(services) == 0 {
		return Resolution{}, false
	}
	first := sortedArgs(q.Candidates.Required[services[0]])
	for _, s := range services[1:] {
		if !slices.Equal(first, sortedArgs(q.Candidates.Required[s])) {
			return Resolution{}, false
		}
	}
	return Resolution{
		Service:  strings.Join(services, ","),
		Required: slices.Clone(q.Candidates.Required[services[0]]),
	}, true
}

func sortedArgs(args []string) []string {
	out := slices.Clone(args)
	slices.Sort(out)
	return slices.Compact(out)
}

// SelectedServices uses the directive's services that define the method.
// With several of them, the receiver name decides, then directive order.
type SelectedServices struct {
	Matcher NameMatcher
}

func (SelectedServices) Name() string { return "selected-services" }

func (r SelectedServices) Resolve(q Query) (Resolution, bool) {
	var overlap []string
	for _, s := range q.Selected {
		if q.Candidates.Contains(s) && !slices.Contains(overlap, s) {
			overlap = append(overlap, s)
		}
	}
	switch len(overlap) {
	case 0:
		return Resolution{}, false
	case 1:
		return resolved(q, overlap[0]), true
	}
	if q.Receiver != "" {
		if s, ok := r.Matcher.Match(q.Receiver, overlap); ok {
			return resolved(q, s), true
		}
	}
	return resolved(q, overlap[0]), true
}

// ReceiverName matches the anchor's receiver binding against the candidates.
type ReceiverName struct {
	Matcher NameMatcher
}

func (ReceiverName) Name() string { return "receiver-name" }

func (r ReceiverName) Resolve(q Query) (Resolution, bool) {
	if q.Receiver == "" {
		return Resolution{}, false
	}
	s, ok := r.Matcher.Match(q.Receiver, q.Candidates.Services)
	if !ok {
		return Resolution{}, false
	}
	return resolved(q, s), true
}

// ClientHints uses the inferred clients. A hint's own service wins over a
// guess from its binding name. When several hints match, those bound to the
// receiver are preferred, and the last one in (binding, service) order wins.
type ClientHints struct {
	Matcher NameMatcher
}

func (ClientHints) Name() string { return "client-hints" }

type hintMatch struct {
	hint    clients.Hint
	service string
}

func (r ClientHints) Resolve(q Query) (Resolution, bool) {
	var matches []hintMatch
	for _, h := range q.Hints {
		if h.Service != "" && q.Candidates.Contains(h.Service) {
			matches = append(matches, hintMatch{hint: h, service: h.Service})
			continue
		}
		if h.Binding == "" {
			continue
		}
		if s, ok := r.Matcher.Match(h.Binding, q.Candidates.Services); ok {
			matches = append(matches, hintMatch{hint: h, service: s})
		}
	}

	switch len(matches) {
	case 0:
		return Resolution{}, false
	case 1:
		return resolved(q, matches[0].service), true
	}
	var preferred []hintMatch
	for _, m := range matches {
		if q.Receiver != "" && m.hint.Binding == q.Receiver {
			preferred = append(preferred, m)
		}
	}
	if len(preferred) > 0 {
		matches = preferred
	}
	return resolved(q, matches[len(matches)-1].service), true
}
