package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sellerops/internal/flow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow-file>",
	Short: "Validate a YAML flow file",
	Args:  cobra.ExactArgs(1),
	RunE:  validateFlow,
}

func validateFlow(cmd *cobra.Command, args []string) error {
	// LoadFile rejects flows that do not validate
	f, err := flow.LoadFile(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Flow %q is valid (%d steps, %d blocks).\n", f.Name, len(f.Steps), len(f.Blocks))
	return nil
}
