// Package pipeline runs checks over files and directories: crawl, extract,
// analyse, cache and record.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"reqprops/internal/analysis"
	"reqprops/internal/config"
	"reqprops/internal/crawler"
	"reqprops/internal/extractor"
	"reqprops/internal/git"
	"reqprops/internal/knowledge"
	"reqprops/internal/report"
	"reqprops/internal/storage"
	"reqprops/internal/syntax"
)

// Request selects what one run checks.
type Request struct {
	// Roots are files or directories. Empty means the working directory.
	Roots []string
	// ChangedSince restricts the run to functions touched since a git ref.
	ChangedSince string
}

// Result is the outcome of one run.
type Result struct {
	RunID       uuid.UUID
	Root        string
	Files       int
	CacheHits   int
	Diagnostics []report.Diagnostic
	StartedAt   time.Time
	Duration    time.Duration
}

// Summary returns the run metadata the report writers print.
func (r *Result) Summary() report.Summary {
	return report.Summary{Root: r.Root, Files: r.Files}
}

type language struct {
	extractor *extractor.Extractor
	marked    *analysis.Analyzer
	all       *analysis.Analyzer
}

// Runner checks source trees against one knowledge base and configuration.
type Runner struct {
	kb           *knowledge.Base
	languages    map[string]*language
	crawler      *crawler.Crawler
	allFunctions bool
	workers      int
	store        storage.Store
	contextHash  string
	logger       *slog.Logger
}

// NewRunner builds a runner. store may be nil to disable the result cache
// and run history.
func NewRunner(kb *knowledge.Base, cfg *config.Config, store storage.Store, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dialects, err := cfg.Dialects()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		kb:           kb,
		languages:    make(map[string]*language, len(dialects)),
		allFunctions: cfg.AllFunctions,
		workers:      cfg.WorkerCount(),
		store:        store,
		logger:       logger,
	}
	for _, d := range dialects {
		ext, err := extractor.NewExtractor(d)
		if err != nil {
			return nil, err
		}
		opts := analysis.Options{Ambiguity: cfg.AmbiguityPolicy()}
		lang := &language{extractor: ext, marked: analysis.NewAnalyzer(kb, d, opts, logger)}
		opts.AllFunctions = true
		lang.all = analysis.NewAnalyzer(kb, d, opts, logger)
		r.languages[d.Language] = lang
	}
	r.crawler = crawler.NewCrawler(r.Accepts, cfg.Ignore)
	r.contextHash = contextHash(kb, cfg, dialects)
	return r, nil
}

// contextHash identifies everything besides file content that affects results.
func contextHash(kb *knowledge.Base, cfg *config.Config, dialects []syntax.Dialect) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%t\n%s\n", kb.Fingerprint(), cfg.AllFunctions, cfg.Ambiguity)
	for _, d := range dialects {
		fmt.Fprintf(h, "%+v\n", d)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Accepts reports whether path is a source file of a checked language.
func (r *Runner) Accepts(path string) bool {
	lang, ok := extractor.LanguageForPath(path)
	if !ok {
		return false
	}
	_, ok = r.languages[lang]
	return ok
}

type fileOutcome struct {
	diagnostics []report.Diagnostic
	cached      bool
	save        *storage.FileResult
}

// Run checks every source file under the request's roots.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	roots := req.Roots
	if len(roots) == 0 {
		roots = []string{"."}
	}
	result := &Result{RunID: uuid.New(), Root: strings.Join(roots, " "), StartedAt: start}

	changes, err := r.detectChangesStage(ctx, roots[0], req.ChangedSince)
	if err != nil {
		return nil, err
	}

	files, err := r.crawler.Files(ctx, roots...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", result.Root, err)
	}
	if changes != nil {
		files = filterChanged(files, changes)
	}
	r.logger.Info("scanned sources", "files", len(files), "root", result.Root)

	outcomes, err := r.checkStage(ctx, files, changes)
	if err != nil {
		return nil, err
	}

	var toSave []storage.FileResult
	for _, o := range outcomes {
		result.Diagnostics = append(result.Diagnostics, o.diagnostics...)
		if o.cached {
			result.CacheHits++
		}
		if o.save != nil {
			toSave = append(toSave, *o.save)
		}
	}
	report.Sort(result.Diagnostics)
	result.Files = len(files)
	result.Duration = time.Since(start)

	r.recordStage(ctx, toSave, result)
	r.logger.Info("check finished",
		"run_id", result.RunID, "files", result.Files, "diagnostics", len(result.Diagnostics),
		"cache_hits", result.CacheHits, "duration", result.Duration)
	return result, nil
}

// detectChangesStage maps absolute paths to their changed lines, or returns
// nil when the run is not restricted.
func (r *Runner) detectChangesStage(ctx context.Context, root, baseRef string) (map[string]git.ChangedFile, error) {
	if baseRef == "" {
		return nil, nil
	}
	dir := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		dir = filepath.Dir(root)
	}
	changed, err := git.GetChangedFiles(ctx, dir, baseRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get git changes: %w", err)
	}
	r.logger.Info("detected changed files", "count", len(changed), "base", baseRef)

	byPath := make(map[string]git.ChangedFile, len(changed))
	for _, c := range changed {
		byPath[c.Path] = c
	}
	return byPath, nil
}

func filterChanged(files []string, changes map[string]git.ChangedFile) []string {
	var kept []string
	for _, f := range files {
		if _, ok := changes[absPath(f)]; ok {
			kept = append(kept, f)
		}
	}
	return kept
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func (r *Runner) checkStage(ctx context.Context, files []string, changes map[string]git.ChangedFile) ([]fileOutcome, error) {
	outcomes := make([]fileOutcome, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, path := range files {
		g.Go(func() error {
			var change *git.ChangedFile
			if changes != nil {
				c := changes[absPath(path)]
				change = &c
			}
			o, err := r.checkFile(ctx, path, change)
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// checkFile analyses one file. Runs restricted to changed lines bypass the
// cache since their results cover only part of the file.
func (r *Runner) checkFile(ctx context.Context, path string, change *git.ChangedFile) (fileOutcome, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return fileOutcome{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	lang, _ := extractor.LanguageForPath(path)

	useCache := r.store != nil && change == nil
	sum := sha256.Sum256(src)
	contentHash := hex.EncodeToString(sum[:])
	if useCache {
		cached, err := r.store.GetFileResult(ctx, path)
		switch {
		case err == nil && cached.ContentHash == contentHash && cached.ContextHash == r.contextHash:
			r.logger.Debug("cache hit", "file", path)
			return fileOutcome{diagnostics: cached.Diagnostics, cached: true}, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			r.logger.Warn("cache lookup failed", "file", path, "error", err)
		}
	}

	diagnostics, err := r.checkSource(ctx, lang, path, src, r.allFunctions, change)
	if err != nil {
		if ctx.Err() != nil {
			return fileOutcome{}, err
		}
		r.logger.Warn("skipping unparseable file", "file", path, "error", err)
		return fileOutcome{}, nil
	}
	o := fileOutcome{diagnostics: diagnostics}
	if useCache {
		o.save = &storage.FileResult{
			Path:        path,
			ContentHash: contentHash,
			ContextHash: r.contextHash,
			Diagnostics: diagnostics,
		}
	}
	return o, nil
}

// CheckSource analyses an in-memory file without touching the cache.
func (r *Runner) CheckSource(ctx context.Context, lang, filename string, src []byte, allFunctions bool) ([]report.Diagnostic, error) {
	diagnostics, err := r.checkSource(ctx, lang, filename, src, allFunctions || r.allFunctions, nil)
	if err != nil {
		return nil, err
	}
	report.Sort(diagnostics)
	return diagnostics, nil
}

func (r *Runner) checkSource(ctx context.Context, lang, path string, src []byte, allFunctions bool, change *git.ChangedFile) ([]report.Diagnostic, error) {
	l, ok := r.languages[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", extractor.ErrUnsupportedLanguage, lang)
	}
	functions, err := l.extractor.ExtractFromSource(ctx, path, src)
	if err != nil {
		return nil, err
	}
	if change != nil {
		functions = analysis.ChangedFunctions(functions, *change)
	}

	analyzer := l.marked
	if allFunctions {
		analyzer = l.all
	}

	var diagnostics []report.Diagnostic
	for _, fn := range functions {
		findings, err := analyzer.AnalyzeFunction(fn)
		if err != nil {
			var cfgErr *analysis.ConfigError
			if errors.As(err, &cfgErr) {
				diagnostics = append(diagnostics, report.FromConfigError(cfgErr))
				continue
			}
			return nil, err
		}
		for _, f := range findings {
			diagnostics = append(diagnostics, report.FromFinding(f))
		}
	}
	return diagnostics, nil
}

// recordStage persists fresh file results and the run. Failures are logged;
// a broken cache never fails a check.
func (r *Runner) recordStage(ctx context.Context, results []storage.FileResult, result *Result) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveFileResults(ctx, results); err != nil {
		r.logger.Warn("failed to save file results", "error", err)
	}
	run := storage.Run{
		ID:          result.RunID,
		StartedAt:   result.StartedAt,
		Root:        result.Root,
		Files:       result.Files,
		Diagnostics: len(result.Diagnostics),
		Duration:    result.Duration,
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		r.logger.Warn("failed to record run", "error", err)
	}
}

// Languages returns the languages the runner can check.
func (r *Runner) Languages() []string {
	var out []string
	for _, lang := range []string{syntax.LanguageRust, syntax.LanguageGo} {
		if _, ok := r.languages[lang]; ok {
			out = append(out, lang)
		}
	}
	return out
}

// KnowledgeBase returns the base the runner checks against.
func (r *Runner) KnowledgeBase() *knowledge.Base {
	return r.kb
}
