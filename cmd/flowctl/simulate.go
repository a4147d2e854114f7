package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"sellerops/internal/dispatch"
	"sellerops/internal/flow"
	"sellerops/internal/ids"
	"sellerops/internal/models"
	"sellerops/internal/session"
	"sellerops/internal/store"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <flow-file>",
	Short: "Dry-run every block step in demo mode",
	Args:  cobra.ExactArgs(1),
	RunE:  simulateFlow,
}

// stepOutcome is one line of simulate output
type stepOutcome struct {
	Order   int              `json:"order"`
	StepID  string           `json:"stepId"`
	Title   string           `json:"title"`
	Agent   bool             `json:"agent,omitempty"`
	Outcome *dispatch.Result `json:"outcome,omitempty"`
}

func simulateFlow(cmd *cobra.Command, args []string) error {
	f, err := flow.LoadFile(args[0])
	if err != nil {
		return err
	}

	outcomes, err := simulate(cmd, f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(outcomes)
}

// simulate runs block steps through a dispatcher with no configurations, so
// every block takes the demo path
func simulate(cmd *cobra.Command, f models.Flow) ([]stepOutcome, error) {
	sess, err := session.New("flowctl", "", "cli")
	if err != nil {
		return nil, err
	}

	mem := store.NewMemory(ids.UUID{})
	dispatcher := dispatch.NewDispatcher(mem, mem, dispatch.DefaultTable())

	steps := flow.OrderedSteps(f.Steps)
	outcomes := make([]stepOutcome, 0, len(steps))
	for _, s := range steps {
		out := stepOutcome{Order: s.Order, StepID: s.ID, Title: s.Title, Agent: s.IsAgentStep}
		if b, idx := f.BlockByID(s.BlockRef); idx >= 0 {
			out.Outcome = dispatcher.Dispatch(cmd.Context(), sess, dispatch.Request{
				BlockID:  b.ID,
				Category: b.Category,
				Name:     b.Option,
				Input:    map[string]any{"step": s.Title},
			})
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}
