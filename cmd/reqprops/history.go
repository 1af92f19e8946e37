package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent check runs recorded in the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("cache") {
			cfg.Cache = historyCache
		}
		store, err := initStore(cfg)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("no cache configured; set cache in the config file or pass --cache")
		}
		defer store.Close()

		runs, err := store.RecentRuns(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tFILES\tDIAGNOSTICS\tDURATION\tROOT")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime), r.Files, r.Diagnostics, r.Duration, r.Root)
		}
		return tw.Flush()
	},
}

var historyCache string

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().StringVar(&historyCache, "cache", "", "SQLite result cache path")
}
