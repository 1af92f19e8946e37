package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reqprops/internal/config"
	"reqprops/internal/pipeline"
	"reqprops/internal/report"
	"reqprops/internal/watch"
)

var checkFlags struct {
	all       bool
	format    string
	knowledge string
	cache     string
	workers   int
	changed   string
	watch     bool
}

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Check Rust and Go sources for missing required builder arguments",
	RunE:  runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.BoolVar(&checkFlags.all, "all", false, "Check every function, not only marked ones")
	f.StringVar(&checkFlags.format, "format", "", "Output format: text, json or github")
	f.StringVar(&checkFlags.knowledge, "knowledge", "", "Knowledge base CSV (default: embedded table)")
	f.StringVar(&checkFlags.cache, "cache", "", "SQLite result cache path")
	f.IntVar(&checkFlags.workers, "workers", 0, "Parallel file workers (0 = GOMAXPROCS)")
	f.StringVar(&checkFlags.changed, "changed", "", "Only check functions changed since this git ref")
	f.BoolVar(&checkFlags.watch, "watch", false, "Re-run the check when files change")
}

// applyCheckFlags overrides configuration with explicitly set flags.
func applyCheckFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("all") {
		cfg.AllFunctions = checkFlags.all
	}
	if f.Changed("format") {
		cfg.Format = checkFlags.format
	}
	if f.Changed("knowledge") {
		cfg.KnowledgeBase = checkFlags.knowledge
	}
	if f.Changed("cache") {
		cfg.Cache = checkFlags.cache
	}
	if f.Changed("workers") {
		cfg.Workers = checkFlags.workers
	}
	return cfg.Validate()
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyCheckFlags(cmd, cfg); err != nil {
		return err
	}
	logger := newLogger(cfg)

	kb, err := loadKnowledgeBase(cfg)
	if err != nil {
		return err
	}
	store, err := initStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	runner, err := pipeline.NewRunner(kb, cfg, store, logger)
	if err != nil {
		return err
	}
	writer, err := report.NewWriter(cfg.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	req := pipeline.Request{Roots: args, ChangedSince: checkFlags.changed}
	ctx := cmd.Context()

	result, err := runner.Run(ctx, req)
	if err != nil {
		return err
	}
	if err := writer.Write(result.Diagnostics, result.Summary()); err != nil {
		return err
	}

	if checkFlags.watch {
		roots := args
		if len(roots) == 0 {
			roots = []string{"."}
		}
		w := watch.New(runner.Accepts, cfg.Ignore, watch.DefaultDelay, logger)
		return w.Run(ctx, roots, func(ctx context.Context, changed []string) {
			recheck, ok := recheckRequest(req, changed)
			if !ok {
				logger.Info("changed files were removed; nothing to re-check", "changed", len(changed))
				return
			}
			logger.Info("re-checking", "files", len(recheck.Roots))
			result, err := runner.Run(ctx, recheck)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "reqprops:", err)
				return
			}
			if err := writer.Write(result.Diagnostics, result.Summary()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "reqprops:", err)
			}
		})
	}

	if len(result.Diagnostics) > 0 {
		return errDiagnostics
	}
	return nil
}

// recheckRequest narrows req to the changed files that still exist. It
// reports false when none is left.
func recheckRequest(req pipeline.Request, changed []string) (pipeline.Request, bool) {
	var roots []string
	for _, path := range changed {
		if _, err := os.Stat(path); err == nil {
			roots = append(roots, path)
		}
	}
	return pipeline.Request{Roots: roots, ChangedSince: req.ChangedSince}, len(roots) > 0
}
