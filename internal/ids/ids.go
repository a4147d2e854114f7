// Package ids centralizes identifier generation so callers can inject a
// deterministic source in tests.
package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique identifiers
type Generator interface {
	Next() string
}

// UUID generates random v4 UUIDs
type UUID struct{}

// Next returns a new UUID string
func (UUID) Next() string {
	return uuid.NewString()
}

// Sequence generates prefix-1, prefix-2, ... in order. Safe for concurrent use.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

// NewSequence creates a sequence generator with the given prefix
func NewSequence(prefix string) *Sequence {
	return &Sequence{Prefix: prefix}
}

// Next returns the next identifier in the sequence
func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.Prefix, s.n)
}
