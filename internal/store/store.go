// Package store is the persistence boundary for tasks, block configurations
// and execution records. Every call takes the caller's session explicitly and
// is scoped to that session's user.
package store

import (
	"context"
	"errors"
	"time"

	"sellerops/internal/models"
	"sellerops/internal/session"
)

// ErrNotFound is returned when a record does not exist for the session user
var ErrNotFound = errors.New("record not found")

// TaskFilter narrows ListTasks
type TaskFilter struct {
	Status   models.TaskStatus
	ParentID *string // nil = any, "" = root tasks only
	TaskType models.TaskType
	Limit    int
}

// TaskPatch lists the task fields to overwrite. Nil fields are left untouched.
type TaskPatch struct {
	Title            *string
	Description      *string
	Status           *models.TaskStatus
	Priority         *models.TaskPriority
	ExecutionOrder   *int
	StepsCompleted   []int
	StepExecutionLog []models.StepLogEntry
	Data             *models.TaskData
}

// ExecutionPatch moves an execution record to a terminal state
type ExecutionPatch struct {
	Status      models.ExecutionStatus
	OutputData  map[string]any
	Error       string
	CompletedAt time.Time
}

// TaskStore persists tasks. DeleteTask cascades to every descendant.
type TaskStore interface {
	ListTasks(ctx context.Context, sess session.Context, filter TaskFilter) ([]models.Task, error)
	CountTasks(ctx context.Context, sess session.Context, filter TaskFilter) (int, error)
	GetTask(ctx context.Context, sess session.Context, id string) (*models.Task, error)
	InsertTask(ctx context.Context, sess session.Context, task models.Task) (*models.Task, error)
	UpdateTask(ctx context.Context, sess session.Context, id string, patch TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, sess session.Context, id string) error
}

// BlockConfigStore persists block configurations, keyed by
// (category, name, blockId) per user.
type BlockConfigStore interface {
	ListBlockConfigurations(ctx context.Context, sess session.Context, category models.Category) ([]models.BlockConfiguration, error)
	UpsertBlockConfiguration(ctx context.Context, sess session.Context, cfg models.BlockConfiguration) error
}

// ExecutionStore persists the dispatcher's audit trail
type ExecutionStore interface {
	InsertExecutionRecord(ctx context.Context, sess session.Context, rec models.ExecutionRecord) (*models.ExecutionRecord, error)
	UpdateExecutionRecord(ctx context.Context, sess session.Context, id string, patch ExecutionPatch) error
	ListExecutionRecords(ctx context.Context, sess session.Context, blockID string, limit int) ([]models.ExecutionRecord, error)
}

// Store is the full persistence boundary
type Store interface {
	TaskStore
	BlockConfigStore
	ExecutionStore
}

const (
	defaultListLimit = 500
	maxListLimit     = 1000
)

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
