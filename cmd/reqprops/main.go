package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reqprops/internal/config"
	"reqprops/internal/knowledge"
	"reqprops/internal/logging"
	"reqprops/internal/storage"
)

// errDiagnostics signals a completed check that reported problems.
var errDiagnostics = errors.New("diagnostics reported")

var (
	rootCmd = &cobra.Command{
		Use:           "reqprops",
		Short:         "Check SDK builder chains for missing required arguments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errDiagnostics):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "reqprops:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a .reqprops.yaml or .reqprops.toml file (default: discovered in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error or quiet")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(schemaCmd)
}

// loadConfig reads the configuration file and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path = config.Discover(wd)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, logging.LevelFromString(cfg.LogLevel))
}

// loadKnowledgeBase returns the configured table or the embedded default.
func loadKnowledgeBase(cfg *config.Config) (*knowledge.Base, error) {
	if cfg.KnowledgeBase == "" {
		return knowledge.Default()
	}
	return knowledge.Load(cfg.KnowledgeBase)
}

// initStore opens the configured cache, or returns nil when caching is off.
func initStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Cache == "" {
		return nil, nil
	}
	store, err := storage.NewSQLiteStore(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", cfg.Cache, err)
	}
	return store, nil
}
