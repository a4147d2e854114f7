package flow

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellerops/internal/catalog"
	"sellerops/internal/ids"
	"sellerops/internal/models"
)

// newTestFlow builds a flow with one block step per category plus one agent step
func newTestFlow(t *testing.T) (models.Flow, *ids.Sequence) {
	t.Helper()
	gen := ids.NewSequence("id")
	f := New(gen, "Restock", "weekly restock", models.TriggerManual)

	var err error
	for _, c := range []models.Category{models.CategoryCollect, models.CategoryThink, models.CategoryAct} {
		f, _, _, err = AddBlockWithStep(f, gen, c)
		require.NoError(t, err)
	}
	f, _, err = AddStep(f, gen, StepSpec{Title: "Ask the agent", IsAgentStep: true, AgentPrompt: "anything else?"})
	require.NoError(t, err)
	return f, gen
}

func orders(f models.Flow) []int {
	out := make([]int, len(f.Steps))
	for i, s := range OrderedSteps(f.Steps) {
		out[i] = s.Order
	}
	return out
}

func contiguous(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestAddBlock_UsesFirstOptionAndDefaultName(t *testing.T) {
	gen := ids.NewSequence("b")
	f := New(gen, "f", "", models.TriggerManual)

	out, block, err := AddBlock(f, gen, models.CategoryCollect)
	require.NoError(t, err)

	assert.Equal(t, "Marketplace Data", block.Option)
	assert.Equal(t, catalog.DefaultName(models.CategoryCollect, "Marketplace Data"), block.Name)
	assert.Len(t, out.Blocks, 1)
	assert.Empty(t, out.Steps, "AddBlock must not create a step")
	assert.Empty(t, f.Blocks, "input flow was mutated")
}

func TestAddBlock_UnknownCategory(t *testing.T) {
	gen := ids.NewSequence("b")
	f := New(gen, "f", "", models.TriggerManual)
	_, _, err := AddBlock(f, gen, models.Category("dream"))
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestUpdateBlockOption_RoundTrip(t *testing.T) {
	f, _ := newTestFlow(t)
	collect := f.Blocks[0]

	out, err := UpdateBlockOption(f, collect.ID, "Upload Sheet")
	require.NoError(t, err)
	assert.Contains(t, catalog.OptionsFor(models.CategoryCollect), "Upload Sheet")

	updated, _ := out.BlockByID(collect.ID)
	assert.Equal(t, "Upload Sheet", updated.Option)
	assert.Equal(t, "Import data from a spreadsheet", updated.Name, "default name should follow the option")
}

func TestUpdateBlockOption_InvalidLeavesFlowUnchanged(t *testing.T) {
	f, _ := newTestFlow(t)
	before := f.Clone()

	out, err := UpdateBlockOption(f, f.Blocks[0].ID, "Update Prices")

	var optErr *InvalidOptionError
	require.True(t, errors.As(err, &optErr), "expected InvalidOptionError, got %v", err)
	assert.Equal(t, models.CategoryCollect, optErr.Category)
	assert.Equal(t, before, f)
	assert.Equal(t, before, out)
}

func TestUpdateBlockOption_KeepsAuthorName(t *testing.T) {
	f, _ := newTestFlow(t)
	id := f.Blocks[0].ID

	f, err := RenameBlock(f, id, "My sales pull")
	require.NoError(t, err)
	f, err = UpdateBlockOption(f, id, "Upload Sheet")
	require.NoError(t, err)

	b, _ := f.BlockByID(id)
	assert.Equal(t, "My sales pull", b.Name)
}

func TestRemoveBlock_RejectsDanglingReference(t *testing.T) {
	f, _ := newTestFlow(t)
	before := f.Clone()
	blockID := f.Blocks[1].ID

	_, err := RemoveBlock(f, blockID)

	var dangling *DanglingReferenceError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, blockID, dangling.BlockID)
	assert.Equal(t, []string{f.Steps[1].ID}, dangling.StepIDs)
	assert.Equal(t, before, f)
}

func TestRemoveBlockWithSteps(t *testing.T) {
	f, _ := newTestFlow(t)
	blockID := f.Blocks[1].ID
	stepID := f.Steps[1].ID

	out, err := RemoveBlockWithSteps(f, blockID, stepID)
	require.NoError(t, err)

	assert.Len(t, out.Blocks, 2)
	assert.Len(t, out.Steps, 3)
	assert.Equal(t, contiguous(3), orders(out))
	assert.NoError(t, Validate(out))
}

func TestRemoveBlock_Orphan(t *testing.T) {
	gen := ids.NewSequence("b")
	f := New(gen, "f", "", models.TriggerManual)
	f, block, err := AddBlock(f, gen, models.CategoryAct)
	require.NoError(t, err)

	out, err := RemoveBlock(f, block.ID)
	require.NoError(t, err)
	assert.Empty(t, out.Blocks)
}

func TestReorderBlocks_DoesNotTouchSteps(t *testing.T) {
	f, _ := newTestFlow(t)
	out := ReorderBlocks(f, 0, 2)

	assert.Equal(t, f.Blocks[0].ID, out.Blocks[2].ID)
	assert.Equal(t, f.Blocks[1].ID, out.Blocks[0].ID)
	assert.Equal(t, f.Steps, out.Steps)

	assert.Equal(t, f, ReorderBlocks(f, 0, 9), "out of range should be a no-op")
}

func TestMoveStep_BoundariesAreNoOps(t *testing.T) {
	f, _ := newTestFlow(t)
	first := OrderedSteps(f.Steps)[0]
	last := OrderedSteps(f.Steps)[len(f.Steps)-1]

	assert.Equal(t, f, MoveStepUp(f, first.ID))
	assert.Equal(t, f, MoveStepDown(f, last.ID))
	assert.Equal(t, f, MoveStepUp(f, "missing"))
}

func TestMoveStepDown(t *testing.T) {
	f, _ := newTestFlow(t)
	first := OrderedSteps(f.Steps)[0]

	out := MoveStepDown(f, first.ID)
	moved, _ := out.StepByID(first.ID)
	assert.Equal(t, 1, moved.Order)
	assert.Equal(t, contiguous(4), orders(out))
}

func TestRemoveStep_RemovesExclusiveBlock(t *testing.T) {
	f, _ := newTestFlow(t)
	step := f.Steps[0]

	out, err := RemoveStep(f, step.ID)
	require.NoError(t, err)

	_, idx := out.BlockByID(step.BlockRef)
	assert.Equal(t, -1, idx, "exclusively owned block should be removed")
	assert.Equal(t, contiguous(3), orders(out))
}

func TestRemoveStep_KeepsSharedBlock(t *testing.T) {
	f, gen := newTestFlow(t)
	shared := f.Blocks[0].ID
	f, _, err := AddStep(f, gen, StepSpec{Title: "again", BlockRef: shared})
	require.NoError(t, err)

	out, err := RemoveStep(f, f.Steps[0].ID)
	require.NoError(t, err)

	_, idx := out.BlockByID(shared)
	assert.GreaterOrEqual(t, idx, 0)
	assert.NoError(t, Validate(out))
}

func TestAddStep_Validation(t *testing.T) {
	f, gen := newTestFlow(t)

	_, _, err := AddStep(f, gen, StepSpec{Title: "x", BlockRef: "ghost"})
	var dangling *DanglingReferenceError
	assert.True(t, errors.As(err, &dangling))

	_, _, err = AddStep(f, gen, StepSpec{Title: "x"})
	var stepErr *InvalidStepError
	assert.True(t, errors.As(err, &stepErr))

	_, _, err = AddStep(f, gen, StepSpec{Title: "x", IsAgentStep: true, BlockRef: f.Blocks[0].ID})
	assert.True(t, errors.As(err, &stepErr))
}

func TestInsertStep_Middle(t *testing.T) {
	f, gen := newTestFlow(t)
	out, step, err := InsertStep(f, gen, 1, StepSpec{Title: "inserted", IsAgentStep: true})
	require.NoError(t, err)

	assert.Equal(t, 1, step.Order)
	assert.Equal(t, "inserted", OrderedSteps(out.Steps)[1].Title)
	assert.Equal(t, contiguous(5), orders(out))
}

func TestOrderContiguity_RandomOperations(t *testing.T) {
	f, gen := newTestFlow(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		n := len(f.Steps)
		var err error
		switch rng.Intn(6) {
		case 0:
			f, _, err = AddStep(f, gen, StepSpec{Title: "agent", IsAgentStep: true})
		case 1:
			f, _, _, err = AddBlockWithStep(f, gen, catalog.Categories()[rng.Intn(4)])
		case 2:
			if n > 0 {
				f, err = RemoveStep(f, f.Steps[rng.Intn(n)].ID)
			}
		case 3:
			f = ReorderSteps(f, rng.Intn(n+1), rng.Intn(n+1))
		case 4:
			if n > 0 {
				f = MoveStepUp(f, f.Steps[rng.Intn(n)].ID)
			}
		case 5:
			f, _, err = InsertStep(f, gen, rng.Intn(n+2)-1, StepSpec{Title: "ins", IsAgentStep: true})
		}
		require.NoError(t, err)
		require.Equal(t, contiguous(len(f.Steps)), orders(f), "iteration %d", i)
		require.NoError(t, Validate(f), "iteration %d", i)
	}
}

func TestValidate(t *testing.T) {
	f, _ := newTestFlow(t)
	assert.NoError(t, Validate(f))

	gapped := f.Clone()
	gapped.Steps[2].Order = 7
	var vErr *ValidationError
	assert.True(t, errors.As(Validate(gapped), &vErr))

	dangling := f.Clone()
	dangling.Blocks = dangling.Blocks[1:]
	var dErr *DanglingReferenceError
	assert.True(t, errors.As(Validate(dangling), &dErr))

	scheduled := f.Clone()
	scheduled.Trigger = models.TriggerScheduled
	scheduled.Schedule = "0 9 * * MON"
	assert.NoError(t, Validate(scheduled))

	scheduled.Schedule = "every tuesday"
	assert.Error(t, Validate(scheduled))

	manual := f.Clone()
	manual.Schedule = "0 9 * * *"
	assert.Error(t, Validate(manual))
}

func TestYAMLRoundTrip(t *testing.T) {
	f, _ := newTestFlow(t)
	data, err := MarshalYAML(f)
	require.NoError(t, err)

	loaded, err := LoadYAML(data)
	require.NoError(t, err)
	assert.Equal(t, f.Name, loaded.Name)
	assert.Equal(t, f.Blocks, loaded.Blocks)
	assert.Equal(t, f.Steps, loaded.Steps)
}

func TestLoadYAML_Invalid(t *testing.T) {
	_, err := LoadYAML([]byte("name: broken\nsteps:\n  - id: s1\n    order: 0\n    blockRef: nope\n"))
	var dErr *DanglingReferenceError
	assert.True(t, errors.As(err, &dErr))
}
