package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"sellerops/internal/flow"
	"sellerops/internal/ids"
	"sellerops/internal/logging"
	"sellerops/internal/models"
	"sellerops/internal/session"
	"sellerops/internal/store"
	"sellerops/internal/tasktree"
	"sellerops/internal/tracker"
)

// TaskInput is a manually created task or subtask
type TaskInput struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Priority    models.TaskPriority `json:"priority,omitempty"`
	Category    string              `json:"category,omitempty"`
}

// TaskService turns flows into tasks and tracks their progress
type TaskService struct {
	store     store.TaskStore
	gen       ids.Generator
	now       func() time.Time
	publisher Publisher
	metrics   *Metrics
}

// NewTaskService creates a task service. publisher and metrics may be nil.
func NewTaskService(st store.TaskStore, gen ids.Generator, publisher Publisher, metrics *Metrics) *TaskService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &TaskService{
		store:     st,
		gen:       gen,
		now:       time.Now,
		publisher: publisher,
		metrics:   metrics,
	}
}

// WithClock replaces the time source
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// RunFlow validates a flow and persists one root task for this run
func (s *TaskService) RunFlow(ctx context.Context, sess session.Context, f models.Flow, trigger models.Trigger) (*models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if trigger != "" && !trigger.Valid() {
		return nil, invalid("trigger", "unknown trigger %q", trigger)
	}
	if err := flow.Validate(f); err != nil {
		return nil, err
	}

	order, err := s.nextRootOrder(ctx, sess)
	if err != nil {
		return nil, err
	}

	task := tasktree.FlowToTask(f, trigger, s.gen, sess.UserID, s.now())
	task.ExecutionOrder = order

	created, err := s.store.InsertTask(ctx, sess, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create flow task: %w", err)
	}

	s.metrics.RecordFlowRun(created.Trigger)
	logging.WithTask(created.ID, sess.UserID).Info("flow run started",
		"flow_id", f.ID, "trigger", created.Trigger, "steps", len(f.Steps))
	s.publish(ctx, sess, EventTaskUpdated, created)
	return created, nil
}

// CreateTask persists a manual root task
func (s *TaskService) CreateTask(ctx context.Context, sess session.Context, input TaskInput) (*models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}

	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	order, err := s.nextRootOrder(ctx, sess)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.store.InsertTask(ctx, sess, models.Task{
		ID:               s.gen.Next(),
		Title:            input.Title,
		Description:      input.Description,
		Status:           models.TaskStatusNotStarted,
		Priority:         input.Priority,
		Category:         input.Category,
		TaskType:         models.TaskTypeTask,
		ExecutionOrder:   order,
		Trigger:          models.TriggerManual,
		StepsCompleted:   []int{},
		StepExecutionLog: []models.StepLogEntry{},
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.publish(ctx, sess, EventTaskUpdated, created)
	return created, nil
}

// AddSubtask nests a new task under parentID after its existing children
func (s *TaskService) AddSubtask(ctx context.Context, sess session.Context, parentID string, input TaskInput) (*models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}

	parent, err := s.store.GetTask(ctx, sess, parentID)
	if err != nil {
		return nil, err
	}
	siblings, err := s.store.CountTasks(ctx, sess, store.TaskFilter{ParentID: &parentID})
	if err != nil {
		return nil, fmt.Errorf("failed to count subtasks: %w", err)
	}

	child := tasktree.NewChildTask(*parent, tasktree.ChildSpec{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		Category:    input.Category,
	}, siblings, s.gen, s.now())

	created, err := s.store.InsertTask(ctx, sess, child)
	if err != nil {
		return nil, fmt.Errorf("failed to create subtask: %w", err)
	}

	s.publish(ctx, sess, EventTaskUpdated, created)
	return created, nil
}

// Tree loads the user's tasks and arranges them as a forest
func (s *TaskService) Tree(ctx context.Context, sess session.Context, filter store.TaskFilter) ([]*models.TaskTreeNode, error) {
	tasks, err := s.store.ListTasks(ctx, sess, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].ExecutionOrder != tasks[j].ExecutionOrder {
			return tasks[i].ExecutionOrder < tasks[j].ExecutionOrder
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasktree.Build(tasks), nil
}

// Get returns one task
func (s *TaskService) Get(ctx context.Context, sess session.Context, taskID string) (*models.Task, error) {
	return s.store.GetTask(ctx, sess, taskID)
}

// CompleteStep marks a step completed and appends to the execution log.
// Re-marking a completed step is not an error.
func (s *TaskService) CompleteStep(ctx context.Context, sess session.Context, taskID string, stepIndex int, note string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}

	next := tracker.MarkStepCompleted(*task, stepIndex, note, s.now())
	updated, err := s.saveSteps(ctx, sess, next)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStepCompletion()
	done, total := tracker.Progress(*updated)
	logging.WithTask(taskID, sess.UserID).Info("step completed", "step_index", stepIndex, "done", done, "total", total)
	s.publish(ctx, sess, EventTaskUpdated, updated)
	return updated, nil
}

// ClearCompletions resets the completion set; the log is kept
func (s *TaskService) ClearCompletions(ctx context.Context, sess session.Context, taskID string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}

	updated, err := s.saveSteps(ctx, sess, tracker.ClearCompletions(*task, s.now()))
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sess, EventTaskUpdated, updated)
	return updated, nil
}

// RegenerateFlowSteps replaces a flow task's steps and blocks, clearing
// completions first
func (s *TaskService) RegenerateFlowSteps(ctx context.Context, sess session.Context, taskID string, steps []models.Step, blocks []models.Block) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}

	trigger := task.Trigger
	if !trigger.Valid() {
		trigger = models.TriggerManual
	}
	if err := flow.Validate(models.Flow{Name: task.Title, Trigger: trigger, Blocks: blocks, Steps: steps}); err != nil {
		return nil, err
	}

	next := tracker.RegenerateSteps(*task, flow.OrderedSteps(steps), blocks, s.now())
	updated, err := s.saveSteps(ctx, sess, next)
	if err != nil {
		return nil, err
	}

	log.Printf("🔄 [TASKS] Regenerated %d steps for task %s", len(steps), taskID)
	s.publish(ctx, sess, EventTaskUpdated, updated)
	return updated, nil
}

// UpdateStatus moves a task to a new status
func (s *TaskService) UpdateStatus(ctx context.Context, sess session.Context, taskID string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, invalid("status", "unknown status %q", status)
	}

	updated, err := s.store.UpdateTask(ctx, sess, taskID, store.TaskPatch{Status: &status})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sess, EventTaskUpdated, updated)
	return updated, nil
}

// Delete removes a task and its descendants
func (s *TaskService) Delete(ctx context.Context, sess session.Context, taskID string) error {
	if err := s.store.DeleteTask(ctx, sess, taskID); err != nil {
		return err
	}
	log.Printf("🗑️ [TASKS] Deleted task %s for user %s", taskID, sess.UserID)
	s.publish(ctx, sess, EventTaskDeleted, map[string]string{"id": taskID})
	return nil
}

func (s *TaskService) saveSteps(ctx context.Context, sess session.Context, t models.Task) (*models.Task, error) {
	updated, err := s.store.UpdateTask(ctx, sess, t.ID, store.TaskPatch{
		StepsCompleted:   t.StepsCompleted,
		StepExecutionLog: t.StepExecutionLog,
		Data:             t.Data,
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *TaskService) nextRootOrder(ctx context.Context, sess session.Context) (int, error) {
	root := ""
	n, err := s.store.CountTasks(ctx, sess, store.TaskFilter{ParentID: &root})
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// publish failures are logged, never returned
func (s *TaskService) publish(ctx context.Context, sess session.Context, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, sess.UserID, eventType, payload); err != nil {
		log.Printf("⚠️ [TASKS] Failed to publish %s for user %s: %v", eventType, sess.UserID, err)
	}
}

// validateTaskInput accepts an empty priority; callers pick the default
func validateTaskInput(input TaskInput) error {
	if input.Title == "" {
		return invalid("title", "is required")
	}
	switch input.Priority {
	case "", models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh, models.TaskPriorityUrgent:
		return nil
	}
	return invalid("priority", "unknown priority %q", input.Priority)
}
