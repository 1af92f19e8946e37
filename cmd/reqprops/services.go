package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var servicesCmd = &cobra.Command{
	Use:   "services [service]",
	Short: "List knowledge base services, or the methods of one service",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		kb, err := loadKnowledgeBase(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			for _, s := range kb.Services() {
				fmt.Fprintln(out, s)
			}
			return nil
		}

		service := args[0]
		if !kb.HasService(service) {
			return fmt.Errorf("unknown service %q", service)
		}
		methods := kb.MethodsFor(service)
		names := make([]string, 0, len(methods))
		for m := range methods {
			names = append(names, m)
		}
		sort.Strings(names)
		for _, m := range names {
			fmt.Fprintf(out, "%s: %s\n", m, strings.Join(methods[m], ", "))
		}
		return nil
	},
}
