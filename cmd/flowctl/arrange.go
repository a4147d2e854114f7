package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sellerops/internal/canvas"
	"sellerops/internal/flow"
)

var writeInPlace bool

var arrangeCmd = &cobra.Command{
	Use:   "arrange <flow-file>",
	Short: "Lay the flow's steps out on the canvas grid",
	Args:  cobra.ExactArgs(1),
	RunE:  arrangeFlow,
}

func init() {
	arrangeCmd.Flags().BoolVarP(&writeInPlace, "write", "w", false, "write the arranged flow back to the file")
}

func arrangeFlow(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := flow.LoadFile(path)
	if err != nil {
		return err
	}
	f.Steps = canvas.AutoArrange(f.Steps)

	out, err := flow.MarshalYAML(f)
	if err != nil {
		return err
	}

	if !writeInPlace {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Arranged %d steps in %s\n", len(f.Steps), path)
	return nil
}
