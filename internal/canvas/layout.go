// Package canvas holds the geometry for drawing a flow as a node graph:
// pointer interaction, zoom and pan, the grid auto-arrange, and the derived
// connection lines. It carries no business semantics.
package canvas

import (
	"sellerops/internal/flow"
	"sellerops/internal/ids"
	"sellerops/internal/models"
)

// Grid layout constants
const (
	GridColumns = 3
	GridOriginX = 100
	GridOriginY = 100
	CellWidth   = 280
	CellHeight  = 180
)

// Node box used to anchor connection lines
const (
	NodeWidth  = 220
	NodeHeight = 96
)

// GridPosition returns the auto-arrange slot for the i-th step in execution order
func GridPosition(i int) models.Position {
	return models.Position{
		X: float64(GridOriginX + (i%GridColumns)*CellWidth),
		Y: float64(GridOriginY + (i/GridColumns)*CellHeight),
	}
}

// AutoArrange places every step on a fixed 3-column grid by execution order.
// The result is deterministic and idempotent.
func AutoArrange(steps []models.Step) []models.Step {
	out := flow.OrderedSteps(steps)
	for i := range out {
		p := GridPosition(i)
		out[i].CanvasPosition = &p
	}
	return out
}

// Edge is a display-only connection between consecutive steps
type Edge struct {
	FromStepID string          `json:"from"`
	ToStepID   string          `json:"to"`
	From       models.Position `json:"fromPoint"`
	To         models.Position `json:"toPoint"`
}

// Connections derives one edge from each step to the next one in execution
// order. Steps without a canvas position break the chain at that point.
func Connections(steps []models.Step) []Edge {
	ordered := flow.OrderedSteps(steps)
	edges := make([]Edge, 0, len(ordered))
	for i := 0; i+1 < len(ordered); i++ {
		from, to := ordered[i], ordered[i+1]
		if from.CanvasPosition == nil || to.CanvasPosition == nil {
			continue
		}
		edges = append(edges, Edge{
			FromStepID: from.ID,
			ToStepID:   to.ID,
			From: models.Position{
				X: from.CanvasPosition.X + NodeWidth,
				Y: from.CanvasPosition.Y + NodeHeight/2,
			},
			To: models.Position{
				X: to.CanvasPosition.X,
				Y: to.CanvasPosition.Y + NodeHeight/2,
			},
		})
	}
	return edges
}

// AddBlockNode adds a block and its step in one go, placing the new node in
// the next free grid slot.
func AddBlockNode(f models.Flow, gen ids.Generator, category models.Category) (models.Flow, models.Step, error) {
	out, _, step, err := flow.AddBlockWithStep(f, gen, category)
	if err != nil {
		return f, models.Step{}, err
	}
	p := GridPosition(step.Order)
	for i := range out.Steps {
		if out.Steps[i].ID == step.ID {
			out.Steps[i].CanvasPosition = &p
		}
	}
	q := p
	step.CanvasPosition = &q
	return out, step, nil
}
