package flow

import (
	"fmt"

	"sellerops/internal/catalog"
	"sellerops/internal/ids"
	"sellerops/internal/models"
)

// AddBlock appends a block using the catalog's first option for category.
// No step is created; see canvas.AddBlockNode for the canvas variant.
func AddBlock(f models.Flow, gen ids.Generator, category models.Category) (models.Flow, models.Block, error) {
	option, ok := catalog.FirstOption(category)
	if !ok {
		return f, models.Block{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	block := models.Block{
		ID:       gen.Next(),
		Category: category,
		Option:   option,
		Name:     catalog.DefaultName(category, option),
	}

	out := f.Clone()
	out.Blocks = append(out.Blocks, block)
	return out, block, nil
}

// AddBlockWithStep appends a block and a block step referencing it at the end
// of the execution order.
func AddBlockWithStep(f models.Flow, gen ids.Generator, category models.Category) (models.Flow, models.Block, models.Step, error) {
	out, block, err := AddBlock(f, gen, category)
	if err != nil {
		return f, models.Block{}, models.Step{}, err
	}
	out, step, err := AddStep(out, gen, StepSpec{
		Title:    block.Name,
		BlockRef: block.ID,
	})
	if err != nil {
		return f, models.Block{}, models.Step{}, err
	}
	return out, block, step, nil
}

// RemoveBlock removes a block. It fails with DanglingReferenceError if any
// step still references the block.
func RemoveBlock(f models.Flow, blockID string) (models.Flow, error) {
	return RemoveBlockWithSteps(f, blockID)
}

// RemoveBlockWithSteps removes a block together with the given steps. Every
// step referencing the block must be among stepIDs, otherwise the flow is
// returned unchanged with a DanglingReferenceError.
func RemoveBlockWithSteps(f models.Flow, blockID string, stepIDs ...string) (models.Flow, error) {
	if _, idx := f.BlockByID(blockID); idx < 0 {
		return f, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}

	removing := make(map[string]bool, len(stepIDs))
	for _, id := range stepIDs {
		if _, idx := f.StepByID(id); idx < 0 {
			return f, fmt.Errorf("%w: %s", ErrStepNotFound, id)
		}
		removing[id] = true
	}

	var dangling []string
	for _, s := range f.Steps {
		if s.BlockRef == blockID && !removing[s.ID] {
			dangling = append(dangling, s.ID)
		}
	}
	if len(dangling) > 0 {
		return f, &DanglingReferenceError{BlockID: blockID, StepIDs: dangling}
	}

	out := f.Clone()
	out.Blocks = out.Blocks[:0]
	for _, b := range f.Blocks {
		if b.ID != blockID {
			out.Blocks = append(out.Blocks, b)
		}
	}

	steps := make([]models.Step, 0, len(f.Steps))
	for _, s := range sortedSteps(f.Steps) {
		if !removing[s.ID] {
			steps = append(steps, s)
		}
	}
	out.Steps = renumber(steps)
	return out, nil
}

// ReorderBlocks moves the block at from to position to. Block order is
// presentation order only and never touches step order. Out-of-range indices
// leave the flow unchanged.
func ReorderBlocks(f models.Flow, from, to int) models.Flow {
	out := f.Clone()
	out.Blocks = move(out.Blocks, from, to)
	return out
}

// UpdateBlockOption changes a block's option. The name is regenerated only if
// the author never edited it away from the old default.
func UpdateBlockOption(f models.Flow, blockID, option string) (models.Flow, error) {
	block, idx := f.BlockByID(blockID)
	if idx < 0 {
		return f, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}
	if !catalog.HasOption(block.Category, option) {
		return f, &InvalidOptionError{Category: block.Category, Option: option}
	}

	out := f.Clone()
	updated := &out.Blocks[idx]
	if updated.Name == catalog.DefaultName(block.Category, block.Option) {
		updated.Name = catalog.DefaultName(block.Category, option)
	}
	updated.Option = option
	return out, nil
}

// RenameBlock overrides a block's display name
func RenameBlock(f models.Flow, blockID, name string) (models.Flow, error) {
	_, idx := f.BlockByID(blockID)
	if idx < 0 {
		return f, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}
	out := f.Clone()
	out.Blocks[idx].Name = name
	return out, nil
}

// move performs a stable move on a copy-owned slice; out of range is a no-op
func move[T any](items []T, from, to int) []T {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) || from == to {
		return items
	}
	item := items[from]
	rest := make([]T, 0, len(items))
	rest = append(rest, items[:from]...)
	rest = append(rest, items[from+1:]...)

	out := make([]T, 0, len(items))
	out = append(out, rest[:to]...)
	out = append(out, item)
	out = append(out, rest[to:]...)
	return out
}
