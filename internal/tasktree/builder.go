package tasktree

import (
	"time"

	"sellerops/internal/ids"
	"sellerops/internal/models"
)

// FlowCategory is the task category assigned to flow runs
const FlowCategory = "flow"

// FlowToTask creates the single root task for one run of a flow. Steps and
// blocks are embedded verbatim; the flow is not decomposed into child tasks.
func FlowToTask(f models.Flow, trigger models.Trigger, gen ids.Generator, userID string, now time.Time) models.Task {
	if trigger == "" {
		trigger = f.Trigger
	}
	return models.Task{
		ID:               gen.Next(),
		UserID:           userID,
		Title:            f.Name,
		Description:      f.Description,
		Status:           models.TaskStatusNotStarted,
		Priority:         models.TaskPriorityMedium,
		Category:         FlowCategory,
		TaskType:         models.TaskTypeFlow,
		ExecutionOrder:   0,
		Trigger:          trigger,
		SavedToFlows:     true,
		StepsCompleted:   []int{},
		StepExecutionLog: []models.StepLogEntry{},
		Data: &models.TaskData{
			FlowID:      f.ID,
			FlowTrigger: trigger,
			FlowSteps:   models.CloneSteps(f.Steps),
			FlowBlocks:  models.CloneBlocks(f.Blocks),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChildSpec describes an ad hoc subtask
type ChildSpec struct {
	Title       string
	Description string
	Priority    models.TaskPriority
	Category    string
}

// NewChildTask creates a subtask nested under parent. executionOrder is the
// position among the parent's existing children.
func NewChildTask(parent models.Task, spec ChildSpec, executionOrder int, gen ids.Generator, now time.Time) models.Task {
	priority := spec.Priority
	if priority == "" {
		priority = parent.Priority
	}
	category := spec.Category
	if category == "" {
		category = parent.Category
	}
	return models.Task{
		ID:               gen.Next(),
		UserID:           parent.UserID,
		Title:            spec.Title,
		Description:      spec.Description,
		Status:           models.TaskStatusNotStarted,
		Priority:         priority,
		Category:         category,
		TaskType:         models.TaskTypeTask,
		ParentID:         parent.ID,
		ExecutionOrder:   executionOrder,
		Trigger:          models.TriggerManual,
		StepsCompleted:   []int{},
		StepExecutionLog: []models.StepLogEntry{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
