package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"reqprops/internal/clients"
	"reqprops/internal/knowledge"
	"reqprops/internal/recorder"
	"reqprops/internal/resolver"
)

// AmbiguityPolicy decides what happens after an ambiguous anchor.
type AmbiguityPolicy string

const (
	// AmbiguityStop reports the anchor and ends the function's analysis.
	AmbiguityStop AmbiguityPolicy = "stop"
	// AmbiguitySkip reports the anchor and carries on with the next segment.
	AmbiguitySkip AmbiguityPolicy = "skip"
)

// Input is one function's worth of engine input.
type Input struct {
	// Calls are in recording order, latest-evaluated first.
	Calls    []recorder.CallSite
	Hints    clients.Set
	Selected []string
	Terminal string
}

// Engine turns recorded calls into findings.
type Engine struct {
	kb        *knowledge.Base
	chain     *resolver.Chain
	ambiguity AmbiguityPolicy
	logger    *slog.Logger
}

func NewEngine(kb *knowledge.Base, chain *resolver.Chain, ambiguity AmbiguityPolicy, logger *slog.Logger) *Engine {
	if ambiguity == "" {
		ambiguity = AmbiguityStop
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{kb: kb, chain: chain, ambiguity: ambiguity, logger: logger}
}

// anchorCandidates panics when the anchor is unknown: the segmenter only
// cuts segments at methods the knowledge base has.
func (e *Engine) anchorCandidates(anchor recorder.CallSite) knowledge.Candidates {
	candidates, found := e.kb.Lookup(anchor.Method)
	if !found {
		panic(fmt.Sprintf("analysis: anchor %q is not in the knowledge base", anchor.Method))
	}
	return candidates
}

// Check returns the findings in source order.
func (e *Engine) Check(in Input) []Finding {
	calls := slices.Clone(in.Calls)
	slices.Reverse(calls)

	hints := in.Hints.Sorted()
	segmenter := NewSegmenter(e.kb, in.Terminal)

	var findings []Finding
	for {
		seg, rest, ok := segmenter.Next(calls)
		if !ok {
			return findings
		}
		calls = rest
		anchor := seg.Anchor

		if anchor.Receiver != "" && len(in.Hints) > 0 && !in.Hints.HasBinding(anchor.Receiver) {
			e.logger.Debug("skipping call on unknown receiver",
				"method", anchor.Method, "receiver", anchor.Receiver, "location", anchor.Location.String())
			continue
		}

		res, err := e.chain.Resolve(resolver.Query{
			Candidates: e.anchorCandidates(anchor),
			Receiver:   anchor.Receiver,
			Selected:   in.Selected,
			Hints:      hints,
		})
		if err != nil {
			var ambiguous *resolver.AmbiguousError
			if !errors.As(err, &ambiguous) {
				panic(fmt.Sprintf("analysis: unexpected resolver error: %v", err))
			}
			findings = append(findings, Finding{
				Kind:       KindAmbiguous,
				Method:     anchor.Method,
				Candidates: ambiguous.Candidates,
				Location:   anchor.Location,
			})
			if e.ambiguity == AmbiguityStop {
				return findings
			}
			continue
		}

		e.logger.Debug("resolved service",
			"method", anchor.Method, "service", res.Service, "rule", res.Rule, "location", anchor.Location.String())

		supplied := seg.Supplied()
		var missing []string
		for _, arg := range res.Required {
			if _, ok := supplied[arg]; !ok {
				missing = append(missing, arg)
			}
		}
		if len(missing) > 0 {
			findings = append(findings, Finding{
				Kind:       KindMissing,
				Method:     anchor.Method,
				Service:    res.Service,
				Missing:    missing,
				Location:   anchor.Location,
				ResolvedBy: res.Rule,
			})
		}
	}
}
