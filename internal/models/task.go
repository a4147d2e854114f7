package models

import "time"

// TaskStatus represents the progress state of a task
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "NotStarted"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusDone       TaskStatus = "Done"
)

// Valid reports whether s is a known status
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority ranks tasks on the board
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// TaskType distinguishes flow runs from manually created tasks
type TaskType string

const (
	TaskTypeTask TaskType = "task"
	TaskTypeFlow TaskType = "flow"
)

// Task is the persisted execution record of a flow run or a manual unit of work
type Task struct {
	ID             string       `bson:"_id" json:"id"`
	UserID         string       `bson:"userId" json:"user_id"`
	Title          string       `bson:"title" json:"title"`
	Description    string       `bson:"description,omitempty" json:"description,omitempty"`
	Status         TaskStatus   `bson:"status" json:"status"`
	Priority       TaskPriority `bson:"priority" json:"priority"`
	Category       string       `bson:"category,omitempty" json:"category,omitempty"`
	TaskType       TaskType     `bson:"taskType" json:"task_type"`
	ParentID       string       `bson:"parentId,omitempty" json:"parent_id,omitempty"`
	ExecutionOrder int          `bson:"executionOrder" json:"execution_order"`
	Trigger        Trigger      `bson:"trigger" json:"trigger"`
	SavedToFlows   bool         `bson:"savedToFlows" json:"saved_to_flows"`

	// Completion state (sorted, unique) and full completion history
	StepsCompleted   []int          `bson:"stepsCompleted" json:"steps_completed"`
	StepExecutionLog []StepLogEntry `bson:"stepExecutionLog" json:"step_execution_log"`

	Data *TaskData `bson:"data,omitempty" json:"data,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// TaskData carries the flow snapshot embedded in a flow run's root task
type TaskData struct {
	FlowID      string         `bson:"flowId,omitempty" json:"flowId,omitempty"`
	FlowTrigger Trigger        `bson:"flowTrigger,omitempty" json:"flowTrigger,omitempty"`
	FlowSteps   []Step         `bson:"flowSteps,omitempty" json:"flowSteps,omitempty"`
	FlowBlocks  []Block        `bson:"flowBlocks,omitempty" json:"flowBlocks,omitempty"`
	Extra       map[string]any `bson:"extra,omitempty" json:"extra,omitempty"`
}

// StepLogEntry records one completion event for a step
type StepLogEntry struct {
	StepIndex   int       `bson:"stepIndex" json:"stepIndex"`
	CompletedAt time.Time `bson:"completedAt" json:"completedAt"`
	Log         string    `bson:"log" json:"log"`
}

// TaskTreeNode is a task with its children, built transiently from a flat list
type TaskTreeNode struct {
	Task
	Children []*TaskTreeNode `json:"children"`
}

// Clone returns a deep copy of the task
func (t Task) Clone() Task {
	out := t
	if t.StepsCompleted != nil {
		out.StepsCompleted = append([]int{}, t.StepsCompleted...)
	}
	if t.StepExecutionLog != nil {
		out.StepExecutionLog = append([]StepLogEntry{}, t.StepExecutionLog...)
	}
	if t.Data != nil {
		d := *t.Data
		d.FlowSteps = CloneSteps(t.Data.FlowSteps)
		d.FlowBlocks = CloneBlocks(t.Data.FlowBlocks)
		if t.Data.Extra != nil {
			d.Extra = make(map[string]any, len(t.Data.Extra))
			for k, v := range t.Data.Extra {
				d.Extra[k] = v
			}
		}
		out.Data = &d
	}
	return out
}
