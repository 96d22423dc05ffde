// Package testutil provides a deterministic run ID source for tests and
// scenario runs.
//
// SequentialRunIDs satisfies engine.RunIDGenerator without importing the
// engine, so engine tests can use it too.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDs generates prefix-001, prefix-002, ...
//
// Two generators with the same prefix produce the same sequence, so a
// scenario re-run yields identical run IDs and byte-identical snapshots.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDs creates a generator whose first ID is prefix-001.
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next run ID.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}

// Issued returns how many IDs have been generated.
func (g *SequentialRunIDs) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence. After Reset(), the next ID is prefix-001.
func (g *SequentialRunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
