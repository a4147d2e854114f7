// Package dispatch decides between demo and functional execution of a block
// and records every invocation as an execution record.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sellerops/internal/models"
)

// Key identifies a block implementation
type Key struct {
	Category models.Category
	Name     string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Category, k.Name)
}

// Invocation is the input handed to a functional block implementation
type Invocation struct {
	UserID      string
	BlockID     string
	Category    models.Category
	Name        string
	Input       map[string]any
	Config      map[string]any
	Credentials map[string]string
}

// Runner is a functional block implementation
type Runner interface {
	Run(ctx context.Context, inv Invocation) (map[string]any, error)
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context, inv Invocation) (map[string]any, error)

// Run calls f
func (f RunnerFunc) Run(ctx context.Context, inv Invocation) (map[string]any, error) {
	return f(ctx, inv)
}

// Table maps (category, name) to the real implementation of a block
type Table struct {
	mu      sync.RWMutex
	runners map[Key]Runner
}

// NewTable creates an empty dispatch table
func NewTable() *Table {
	return &Table{runners: make(map[Key]Runner)}
}

// DefaultTable registers the library-backed implementations
func DefaultTable() *Table {
	t := NewTable()
	t.Register(Key{models.CategoryCollect, "Upload Sheet"}, SheetRunner{MaxRows: 1000})
	t.Register(Key{models.CategoryCollect, "Upload Document"}, DocumentRunner{MaxPages: 100})
	t.Register(Key{models.CategoryAct, "Generate Report"}, NewReportRunner())
	return t
}

// Register adds or replaces the runner for key
func (t *Table) Register(key Key, runner Runner) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runners[key] = runner
}

// Lookup returns the runner for (category, name)
func (t *Table) Lookup(category models.Category, name string) (Runner, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.runners[Key{category, name}]
	return r, ok
}

// Keys lists the registered implementations in stable order
func (t *Table) Keys() []Key {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]Key, 0, len(t.runners))
	for k := range t.runners {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
