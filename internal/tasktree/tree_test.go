package tasktree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellerops/internal/ids"
	"sellerops/internal/models"
)

func nodeIDs(nodes []*models.TaskTreeNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestBuild_OrphanBecomesRoot(t *testing.T) {
	roots := Build([]models.Task{
		{ID: "A"},
		{ID: "B", ParentID: "ghost"},
	})
	assert.Equal(t, []string{"A", "B"}, nodeIDs(roots))
}

func TestBuild_Nesting(t *testing.T) {
	tasks := []models.Task{
		{ID: "c2", ParentID: "root"},
		{ID: "root"},
		{ID: "c1", ParentID: "root"},
		{ID: "g1", ParentID: "c1"},
		{ID: "other"},
	}
	roots := Build(tasks)

	require.Equal(t, []string{"root", "other"}, nodeIDs(roots))
	assert.Equal(t, []string{"c2", "c1"}, nodeIDs(roots[0].Children), "children keep input order")
	assert.Equal(t, []string{"g1"}, nodeIDs(roots[0].Children[1].Children))
	assert.NotNil(t, roots[1].Children)
	assert.Empty(t, roots[1].Children)
}

func TestBuild_CycleIsBrokenNotDropped(t *testing.T) {
	tasks := []models.Task{
		{ID: "A", ParentID: "B"},
		{ID: "B", ParentID: "A"},
		{ID: "S", ParentID: "S"},
	}
	roots := Build(tasks)

	assert.Len(t, Flatten(roots), 3)
	assert.Equal(t, []string{"B", "S"}, nodeIDs(roots))
	assert.Equal(t, []string{"A"}, nodeIDs(roots[0].Children))
}

func TestBuild_Empty(t *testing.T) {
	assert.Empty(t, Build(nil))
}

func TestFlowToTask(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := models.Flow{
		ID:      "flow-1",
		Name:    "Reprice",
		Trigger: models.TriggerScheduled,
		Blocks:  []models.Block{{ID: "b1", Category: models.CategoryAct, Option: "Update Prices", Name: "Apply price changes"}},
		Steps:   []models.Step{{ID: "s1", Title: "Apply", Order: 0, BlockRef: "b1"}},
	}

	task := FlowToTask(f, models.TriggerInsight, ids.NewSequence("task"), "user-1", now)

	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, "Reprice", task.Title)
	assert.Equal(t, models.TaskTypeFlow, task.TaskType)
	assert.Equal(t, models.TriggerInsight, task.Trigger)
	assert.Empty(t, task.ParentID)
	require.NotNil(t, task.Data)
	assert.Equal(t, "flow-1", task.Data.FlowID)
	assert.Equal(t, f.Steps, task.Data.FlowSteps)
	assert.Equal(t, f.Blocks, task.Data.FlowBlocks)

	task.Data.FlowSteps[0].Title = "changed"
	assert.Equal(t, "Apply", f.Steps[0].Title, "flow steps must be copied, not shared")

	fallback := FlowToTask(f, "", ids.NewSequence("task"), "user-1", now)
	assert.Equal(t, models.TriggerScheduled, fallback.Trigger)
}

func TestNewChildTask(t *testing.T) {
	parent := models.Task{ID: "root", UserID: "u", Priority: models.TaskPriorityHigh, Category: "flow"}
	child := NewChildTask(parent, ChildSpec{Title: "call supplier"}, 2, ids.NewSequence("t"), time.Now())

	assert.Equal(t, "root", child.ParentID)
	assert.Equal(t, 2, child.ExecutionOrder)
	assert.Equal(t, models.TaskPriorityHigh, child.Priority)
	assert.Equal(t, models.TaskTypeTask, child.TaskType)

	roots := Build([]models.Task{parent, child})
	require.Len(t, roots, 1)
	assert.Equal(t, []string{child.ID}, nodeIDs(roots[0].Children))
}

func TestBuild_DuplicateIDFirstWins(t *testing.T) {
	roots := Build([]models.Task{
		{ID: "P"},
		{ID: "A"},
		{ID: "A", ParentID: "P"},
	})
	require.Len(t, roots, 2)
	assert.Equal(t, []string{"P", "A"}, nodeIDs(roots))
	assert.Empty(t, roots[0].Children)
}
