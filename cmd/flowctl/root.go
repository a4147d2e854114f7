package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "flowctl",
	Short:        "Author, check and dry-run seller-ops flows",
	Long:         "Validate, lay out and simulate flow YAML files without a running server.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(validateCmd, arrangeCmd, simulateCmd, watchCmd, tokenCmd)
}
