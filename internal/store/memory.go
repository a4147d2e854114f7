package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"sellerops/internal/ids"
	"sellerops/internal/models"
	"sellerops/internal/session"
)

// Memory is an in-process Store used by tests and the flowctl CLI
type Memory struct {
	mu         sync.RWMutex
	gen        ids.Generator
	now        func() time.Time
	tasks      map[string]models.Task
	configs    []models.BlockConfiguration
	executions []models.ExecutionRecord
}

// NewMemory creates an empty in-memory store
func NewMemory(gen ids.Generator) *Memory {
	return &Memory{
		gen:   gen,
		now:   time.Now,
		tasks: make(map[string]models.Task),
	}
}

// WithClock replaces the time source
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// ListTasks returns the user's tasks ordered by executionOrder then createdAt
func (m *Memory) ListTasks(ctx context.Context, sess session.Context, filter TaskFilter) ([]models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Task, 0)
	for _, t := range m.tasks {
		if matchTask(t, sess.UserID, filter) {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExecutionOrder != out[j].ExecutionOrder {
			return out[i].ExecutionOrder < out[j].ExecutionOrder
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit := listLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountTasks counts the user's tasks matching filter; Limit is ignored
func (m *Memory) CountTasks(ctx context.Context, sess session.Context, filter TaskFilter) (int, error) {
	if err := sess.Validate(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, t := range m.tasks {
		if matchTask(t, sess.UserID, filter) {
			n++
		}
	}
	return n, nil
}

func matchTask(t models.Task, userID string, filter TaskFilter) bool {
	if t.UserID != userID {
		return false
	}
	if filter.Status != "" && t.Status != filter.Status {
		return false
	}
	if filter.TaskType != "" && t.TaskType != filter.TaskType {
		return false
	}
	return filter.ParentID == nil || t.ParentID == *filter.ParentID
}

// GetTask returns one task
func (m *Memory) GetTask(ctx context.Context, sess session.Context, id string) (*models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok || t.UserID != sess.UserID {
		return nil, ErrNotFound
	}
	out := t.Clone()
	return &out, nil
}

// InsertTask stores a new task, assigning an id and timestamps when missing
func (m *Memory) InsertTask(ctx context.Context, sess session.Context, task models.Task) (*models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t := task.Clone()
	if t.ID == "" {
		t.ID = m.gen.Next()
	}
	t.UserID = sess.UserID
	now := m.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.StepsCompleted == nil {
		t.StepsCompleted = []int{}
	}
	if t.StepExecutionLog == nil {
		t.StepExecutionLog = []models.StepLogEntry{}
	}
	m.tasks[t.ID] = t

	out := t.Clone()
	return &out, nil
}

// UpdateTask applies patch to a task. Last write wins.
func (m *Memory) UpdateTask(ctx context.Context, sess session.Context, id string, patch TaskPatch) (*models.Task, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.UserID != sess.UserID {
		return nil, ErrNotFound
	}
	t = applyTaskPatch(t, patch)
	t.UpdatedAt = m.now()
	m.tasks[id] = t

	out := t.Clone()
	return &out, nil
}

// DeleteTask removes a task and all of its descendants
func (m *Memory) DeleteTask(ctx context.Context, sess session.Context, id string) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	root, ok := m.tasks[id]
	if !ok || root.UserID != sess.UserID {
		return ErrNotFound
	}

	doomed := map[string]bool{id: true}
	frontier := []string{id}
	for len(frontier) > 0 {
		var next []string
		for tid, t := range m.tasks {
			if t.UserID != sess.UserID || doomed[tid] {
				continue
			}
			for _, p := range frontier {
				if t.ParentID == p {
					doomed[tid] = true
					next = append(next, tid)
					break
				}
			}
		}
		frontier = next
	}
	for tid := range doomed {
		delete(m.tasks, tid)
	}
	return nil
}

// ListBlockConfigurations returns the user's configurations, optionally for one category
func (m *Memory) ListBlockConfigurations(ctx context.Context, sess session.Context, category models.Category) ([]models.BlockConfiguration, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.BlockConfiguration, 0)
	for _, c := range m.configs {
		if c.UserID != sess.UserID {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		out = append(out, c.Clone())
	}
	return out, nil
}

// UpsertBlockConfiguration inserts or replaces the configuration with the
// same (category, name, blockId)
func (m *Memory) UpsertBlockConfiguration(ctx context.Context, sess session.Context, cfg models.BlockConfiguration) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := cfg.Clone()
	c.UserID = sess.UserID
	c.UpdatedAt = m.now()
	for i, existing := range m.configs {
		if existing.UserID == c.UserID && existing.Category == c.Category &&
			existing.Name == c.Name && existing.BlockID == c.BlockID {
			c.ID = existing.ID
			m.configs[i] = c
			return nil
		}
	}
	if c.ID == "" {
		c.ID = m.gen.Next()
	}
	m.configs = append(m.configs, c)
	return nil
}

// InsertExecutionRecord appends an execution record
func (m *Memory) InsertExecutionRecord(ctx context.Context, sess session.Context, rec models.ExecutionRecord) (*models.ExecutionRecord, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r := rec
	if r.ID == "" {
		r.ID = m.gen.Next()
	}
	r.UserID = sess.UserID
	if r.StartedAt.IsZero() {
		r.StartedAt = m.now()
	}
	m.executions = append(m.executions, r)
	out := r
	return &out, nil
}

// UpdateExecutionRecord moves a record to a new status
func (m *Memory) UpdateExecutionRecord(ctx context.Context, sess session.Context, id string, patch ExecutionPatch) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.executions {
		if r.ID != id || r.UserID != sess.UserID {
			continue
		}
		m.executions[i] = applyExecutionPatch(r, patch)
		return nil
	}
	return ErrNotFound
}

// ListExecutionRecords returns the newest records first, optionally for one block
func (m *Memory) ListExecutionRecords(ctx context.Context, sess session.Context, blockID string, limit int) ([]models.ExecutionRecord, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ExecutionRecord, 0)
	for i := len(m.executions) - 1; i >= 0; i-- {
		r := m.executions[i]
		if r.UserID != sess.UserID || (blockID != "" && r.BlockID != blockID) {
			continue
		}
		out = append(out, r)
		if len(out) == listLimit(limit) {
			break
		}
	}
	return out, nil
}

func applyTaskPatch(t models.Task, p TaskPatch) models.Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ExecutionOrder != nil {
		t.ExecutionOrder = *p.ExecutionOrder
	}
	if p.StepsCompleted != nil {
		t.StepsCompleted = append([]int{}, p.StepsCompleted...)
	}
	if p.StepExecutionLog != nil {
		t.StepExecutionLog = append([]models.StepLogEntry{}, p.StepExecutionLog...)
	}
	if p.Data != nil {
		t.Data = models.Task{Data: p.Data}.Clone().Data
	}
	return t
}

func applyExecutionPatch(r models.ExecutionRecord, p ExecutionPatch) models.ExecutionRecord {
	r.Status = p.Status
	if p.OutputData != nil {
		r.OutputData = p.OutputData
	}
	r.Error = p.Error
	if !p.CompletedAt.IsZero() {
		completed := p.CompletedAt
		r.CompletedAt = &completed
	}
	return r
}
