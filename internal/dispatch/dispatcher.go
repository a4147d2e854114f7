package dispatch

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"sellerops/internal/logging"
	"sellerops/internal/models"
	"sellerops/internal/session"
	"sellerops/internal/store"
)

// Dispatch modes reported to observers
const (
	ModeDemo       = "demo"
	ModeFunctional = "functional"
)

// Request identifies the block to run and its input payload
type Request struct {
	BlockID  string          `json:"blockId"`
	Category models.Category `json:"category"`
	Name     string          `json:"name"`
	Input    map[string]any  `json:"input"`
}

// Result is returned for every dispatch. Success is false only when the
// dispatch itself could not complete; demo mode is a successful path.
type Result struct {
	Success     bool           `json:"success"`
	DemoMode    bool           `json:"demoMode"`
	Result      map[string]any `json:"result,omitempty"`
	ExecutionID string         `json:"executionId,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// ConfigSource lists a user's block configurations
type ConfigSource interface {
	ListBlockConfigurations(ctx context.Context, sess session.Context, category models.Category) ([]models.BlockConfiguration, error)
}

// Observer receives one call per finished dispatch
type Observer interface {
	ObserveDispatch(category models.Category, mode, status string, elapsed time.Duration)
}

// Publisher announces finished dispatches to the user's event channel
type Publisher interface {
	Publish(ctx context.Context, userID, eventType string, payload any) error
}

// Dispatcher resolves block configurations and runs blocks
type Dispatcher struct {
	configs   ConfigSource
	records   store.ExecutionStore
	table     *Table
	now       func() time.Time
	observer  Observer
	publisher Publisher
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithObserver reports every dispatch to o
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithPublisher announces every dispatch through p
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// NewDispatcher creates a dispatcher
func NewDispatcher(configs ConfigSource, records store.ExecutionStore, table *Table, opts ...Option) *Dispatcher {
	if table == nil {
		table = NewTable()
	}
	d := &Dispatcher{
		configs: configs,
		records: records,
		table:   table,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one block. The returned Result is never nil.
func (d *Dispatcher) Dispatch(ctx context.Context, sess session.Context, req Request) *Result {
	start := d.now()
	logger := logging.WithBlock(slog.With("user_id", sess.UserID), req.BlockID, req.Category, req.Name)

	if err := sess.Validate(); err != nil {
		return &Result{Error: err.Error()}
	}
	if !req.Category.Valid() {
		return &Result{Error: fmt.Sprintf("unknown block category: %q", req.Category)}
	}

	cfg, err := d.resolve(ctx, sess, req)
	if err != nil {
		logger.Error("failed to load block configuration", "error", err)
		d.observe(req.Category, ModeDemo, "error", start)
		return &Result{Error: fmt.Sprintf("failed to load block configuration: %v", err)}
	}

	var res *Result
	if cfg == nil || !cfg.IsFunctional {
		res = d.runDemo(ctx, sess, req, start)
		d.observe(req.Category, ModeDemo, statusLabel(res), start)
	} else {
		res = d.runFunctional(ctx, sess, req, cfg, start, logger)
		d.observe(req.Category, ModeFunctional, statusLabel(res), start)
	}

	if res.Success {
		logger.Info("block dispatched", "demo_mode", res.DemoMode, "execution_id", res.ExecutionID)
	} else {
		logger.Warn("block dispatch failed", "demo_mode", res.DemoMode, "error", res.Error)
	}
	d.publish(ctx, sess, req, res)
	return res
}

// resolve finds the configuration for (category, name), falling back to blockId
func (d *Dispatcher) resolve(ctx context.Context, sess session.Context, req Request) (*models.BlockConfiguration, error) {
	configs, err := d.configs.ListBlockConfigurations(ctx, sess, "")
	if err != nil {
		return nil, err
	}
	return Resolve(configs, req.Category, req.Name, req.BlockID), nil
}

// Resolve picks the configuration governing a block. A (category, name) match
// wins; among several, one bound to blockID is preferred, then an unbound one.
// With no (category, name) match, a configuration bound to blockID is used.
func Resolve(configs []models.BlockConfiguration, category models.Category, name, blockID string) *models.BlockConfiguration {
	var bound, unbound, other *models.BlockConfiguration
	for i := range configs {
		c := &configs[i]
		if c.Category != category || c.Name != name {
			continue
		}
		switch {
		case blockID != "" && c.BlockID == blockID && bound == nil:
			bound = c
		case c.BlockID == "" && unbound == nil:
			unbound = c
		case other == nil:
			other = c
		}
	}
	for _, c := range []*models.BlockConfiguration{bound, unbound, other} {
		if c != nil {
			return c
		}
	}

	if blockID == "" {
		return nil
	}
	for i := range configs {
		if configs[i].BlockID == blockID {
			return &configs[i]
		}
	}
	return nil
}

func (d *Dispatcher) runDemo(ctx context.Context, sess session.Context, req Request, start time.Time) *Result {
	output := Simulate(req.Category, req.Name, req.Input)
	completed := d.now()

	rec, err := d.records.InsertExecutionRecord(ctx, sess, models.ExecutionRecord{
		BlockID:     req.BlockID,
		Category:    req.Category,
		Name:        req.Name,
		InputData:   req.Input,
		OutputData:  output,
		Status:      models.ExecutionStatusCompleted,
		DemoMode:    true,
		StartedAt:   start,
		CompletedAt: &completed,
	})
	if err != nil {
		return &Result{DemoMode: true, Error: fmt.Sprintf("failed to record execution: %v", err)}
	}
	return &Result{Success: true, DemoMode: true, Result: output, ExecutionID: rec.ID}
}

func (d *Dispatcher) runFunctional(ctx context.Context, sess session.Context, req Request, cfg *models.BlockConfiguration, start time.Time, logger *slog.Logger) *Result {
	rec, err := d.records.InsertExecutionRecord(ctx, sess, models.ExecutionRecord{
		BlockID:   req.BlockID,
		Category:  req.Category,
		Name:      req.Name,
		InputData: req.Input,
		Status:    models.ExecutionStatusProcessing,
		StartedAt: start,
	})
	if err != nil {
		return &Result{Error: fmt.Sprintf("failed to record execution: %v", err)}
	}

	output, runErr := d.invoke(ctx, Invocation{
		UserID:      sess.UserID,
		BlockID:     req.BlockID,
		Category:    req.Category,
		Name:        req.Name,
		Input:       req.Input,
		Config:      cfg.ConfigData,
		Credentials: cfg.Credentials,
	})

	if runErr != nil {
		if err := d.records.UpdateExecutionRecord(ctx, sess, rec.ID, store.ExecutionPatch{
			Status:      models.ExecutionStatusFailed,
			Error:       runErr.Error(),
			CompletedAt: d.now(),
		}); err != nil {
			logger.Error("failed to mark execution failed", "execution_id", rec.ID, "error", err)
		}
		return &Result{ExecutionID: rec.ID, Error: runErr.Error()}
	}

	if err := d.records.UpdateExecutionRecord(ctx, sess, rec.ID, store.ExecutionPatch{
		Status:      models.ExecutionStatusCompleted,
		OutputData:  output,
		CompletedAt: d.now(),
	}); err != nil {
		return &Result{Result: output, ExecutionID: rec.ID, Error: fmt.Sprintf("failed to record execution: %v", err)}
	}
	return &Result{Success: true, Result: output, ExecutionID: rec.ID}
}

// invoke runs the registered implementation, converting a panic into an error
func (d *Dispatcher) invoke(ctx context.Context, inv Invocation) (output map[string]any, err error) {
	runner, ok := d.table.Lookup(inv.Category, inv.Name)
	if !ok {
		return nil, fmt.Errorf("no implementation registered for %s", Key{inv.Category, inv.Name})
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [DISPATCH] %s panicked: %v", Key{inv.Category, inv.Name}, r)
			output, err = nil, fmt.Errorf("block implementation panicked: %v", r)
		}
	}()
	return runner.Run(ctx, inv)
}

func (d *Dispatcher) observe(category models.Category, mode, status string, start time.Time) {
	if d.observer != nil {
		d.observer.ObserveDispatch(category, mode, status, d.now().Sub(start))
	}
}

func (d *Dispatcher) publish(ctx context.Context, sess session.Context, req Request, res *Result) {
	if d.publisher == nil || res.ExecutionID == "" {
		return
	}
	payload := map[string]any{
		"executionId": res.ExecutionID,
		"blockId":     req.BlockID,
		"category":    req.Category,
		"name":        req.Name,
		"success":     res.Success,
		"demoMode":    res.DemoMode,
	}
	if err := d.publisher.Publish(ctx, sess.UserID, "block_executed", payload); err != nil {
		log.Printf("⚠️ [DISPATCH] Failed to publish block_executed for user %s: %v", sess.UserID, err)
	}
}

func statusLabel(res *Result) string {
	if res.Success {
		return "success"
	}
	return "error"
}
