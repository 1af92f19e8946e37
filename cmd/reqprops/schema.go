package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reqprops/internal/report"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the --format json report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprint(cmd.OutOrStdout(), report.SchemaJSON())
		return err
	},
}
