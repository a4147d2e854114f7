package flow

import (
	"fmt"
	"sort"

	"sellerops/internal/ids"
	"sellerops/internal/models"
)

// StepSpec describes a step to add. Exactly one of BlockRef or IsAgentStep must be set.
type StepSpec struct {
	Title          string
	Description    string
	BlockRef       string
	IsAgentStep    bool
	AgentPrompt    string
	CanvasPosition *models.Position
}

// AddStep appends a step at the end of the execution order
func AddStep(f models.Flow, gen ids.Generator, spec StepSpec) (models.Flow, models.Step, error) {
	return InsertStep(f, gen, len(f.Steps), spec)
}

// InsertStep inserts a step at index in the execution order. Indices past the
// end append; negative indices insert at the front.
func InsertStep(f models.Flow, gen ids.Generator, index int, spec StepSpec) (models.Flow, models.Step, error) {
	if err := checkSpec(f, spec); err != nil {
		return f, models.Step{}, err
	}

	step := models.Step{
		ID:          gen.Next(),
		Title:       spec.Title,
		Description: spec.Description,
		BlockRef:    spec.BlockRef,
		IsAgentStep: spec.IsAgentStep,
		AgentPrompt: spec.AgentPrompt,
	}
	if spec.CanvasPosition != nil {
		p := *spec.CanvasPosition
		step.CanvasPosition = &p
	}

	steps := sortedSteps(f.Steps)
	if index < 0 {
		index = 0
	}
	if index > len(steps) {
		index = len(steps)
	}
	out := make([]models.Step, 0, len(steps)+1)
	out = append(out, steps[:index]...)
	out = append(out, step)
	out = append(out, steps[index:]...)

	result := f.Clone()
	result.Steps = renumber(out)
	step.Order = index
	return result, step, nil
}

// RemoveStep removes a step and re-packs the order. A block referenced only
// by the removed step is removed with it.
func RemoveStep(f models.Flow, stepID string) (models.Flow, error) {
	step, idx := f.StepByID(stepID)
	if idx < 0 {
		return f, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}

	out := f.Clone()
	remaining := make([]models.Step, 0, len(f.Steps))
	exclusive := step.BlockRef != ""
	for _, s := range sortedSteps(f.Steps) {
		if s.ID == stepID {
			continue
		}
		if step.BlockRef != "" && s.BlockRef == step.BlockRef {
			exclusive = false
		}
		remaining = append(remaining, s)
	}
	out.Steps = renumber(remaining)

	if exclusive {
		blocks := make([]models.Block, 0, len(out.Blocks))
		for _, b := range out.Blocks {
			if b.ID != step.BlockRef {
				blocks = append(blocks, b)
			}
		}
		out.Blocks = blocks
	}
	return out, nil
}

// ReorderSteps moves the step at execution position from to position to.
// Out-of-range positions are a no-op.
func ReorderSteps(f models.Flow, from, to int) models.Flow {
	out := f.Clone()
	out.Steps = renumber(move(sortedSteps(f.Steps), from, to))
	return out
}

// MoveStepUp swaps a step with its predecessor; the first step stays put
func MoveStepUp(f models.Flow, stepID string) models.Flow {
	i := positionOf(f.Steps, stepID)
	if i <= 0 {
		return f.Clone()
	}
	return ReorderSteps(f, i, i-1)
}

// MoveStepDown swaps a step with its successor; the last step stays put
func MoveStepDown(f models.Flow, stepID string) models.Flow {
	i := positionOf(f.Steps, stepID)
	if i < 0 || i >= len(f.Steps)-1 {
		return f.Clone()
	}
	return ReorderSteps(f, i, i+1)
}

// OrderedSteps returns a copy of the steps sorted by execution order
func OrderedSteps(steps []models.Step) []models.Step {
	return sortedSteps(steps)
}

func checkSpec(f models.Flow, spec StepSpec) error {
	switch {
	case spec.IsAgentStep && spec.BlockRef != "":
		return &InvalidStepError{Reason: "agent step cannot reference a block"}
	case !spec.IsAgentStep && spec.BlockRef == "":
		return &InvalidStepError{Reason: "block step requires a block reference"}
	}
	if spec.BlockRef != "" {
		if _, idx := f.BlockByID(spec.BlockRef); idx < 0 {
			return &DanglingReferenceError{BlockID: spec.BlockRef}
		}
	}
	return nil
}

// sortedSteps returns a copy of steps in execution order. Ties keep slice order.
func sortedSteps(steps []models.Step) []models.Step {
	out := models.CloneSteps(steps)
	if out == nil {
		return []models.Step{}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// renumber assigns the contiguous 0..n-1 sequence in slice order
func renumber(steps []models.Step) []models.Step {
	for i := range steps {
		steps[i].Order = i
	}
	return steps
}

func positionOf(steps []models.Step, stepID string) int {
	for i, s := range sortedSteps(steps) {
		if s.ID == stepID {
			return i
		}
	}
	return -1
}
