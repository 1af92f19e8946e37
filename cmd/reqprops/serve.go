package main

import (
	"github.com/spf13/cobra"

	"reqprops/internal/pipeline"
	"reqprops/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the check API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}
		logger := newLogger(cfg)

		kb, err := loadKnowledgeBase(cfg)
		if err != nil {
			return err
		}
		runner, err := pipeline.NewRunner(kb, cfg, nil, logger)
		if err != nil {
			return err
		}
		return server.NewApp(runner, kb, logger).Serve(cmd.Context(), cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :7411)")
}
