package analysis

import (
	"log/slog"

	"reqprops/internal/clients"
	"reqprops/internal/knowledge"
	"reqprops/internal/recorder"
	"reqprops/internal/resolver"
	"reqprops/internal/syntax"
)

type Options struct {
	// AllFunctions analyses functions without the directive too.
	AllFunctions bool
	Ambiguity    AmbiguityPolicy
	// Matcher guesses services from binding names. Nil selects StripClientMatcher.
	Matcher resolver.NameMatcher
}

// Analyzer runs client inference, call recording and the engine over the
// functions of one language.
type Analyzer struct {
	kb      *knowledge.Base
	dialect syntax.Dialect
	opts    Options
	engine  *Engine
	logger  *slog.Logger
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(kb *knowledge.Base, dialect syntax.Dialect, opts Options, logger *slog.Logger) *Analyzer {
	if opts.Matcher == nil {
		opts.Matcher = resolver.StripClientMatcher{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	chain := resolver.NewDefaultChain(opts.Matcher)
	return &Analyzer{
		kb:      kb,
		dialect: dialect,
		opts:    opts,
		engine:  NewEngine(kb, chain, opts.Ambiguity, logger),
		logger:  logger,
	}
}

// Wants reports whether the function is in scope for analysis.
func (a *Analyzer) Wants(fn *syntax.Function) bool {
	return a.opts.AllFunctions || fn.Marked()
}

// AnalyzeFunction returns the findings of one function. A malformed
// directive or one naming unknown services yields a *ConfigError and no
// findings.
func (a *Analyzer) AnalyzeFunction(fn *syntax.Function) ([]Finding, error) {
	if !a.Wants(fn) {
		return nil, nil
	}

	if d := fn.Directive; d != nil {
		if d.Err != nil {
			return nil, &ConfigError{Function: fn.Name, Location: d.Location, Err: d.Err}
		}
		if unknown := a.kb.UnknownServices(d.Services); len(unknown) > 0 {
			return nil, &ConfigError{Function: fn.Name, Location: d.Location, Err: &UnknownServicesError{Services: unknown}}
		}
	}

	findings := a.engine.Check(Input{
		Calls:    recorder.Record(fn.Body),
		Hints:    clients.Infer(fn, a.dialect),
		Selected: fn.Services(),
		Terminal: a.dialect.Terminal,
	})

	a.logger.Debug("analysed function",
		"function", fn.Name, "location", fn.Location.String(), "findings", len(findings))
	return findings, nil
}
