package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates ids of the form prefix_%08x from one shared
// counter, so ids are unique across prefixes and stable across runs.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	mu sync.Mutex
	n  uint32
}

// NewSequentialIDs creates a generator whose first id ends in 00000001.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// New returns the next id for prefix.
func (g *SequentialIDs) New(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s_%08x", prefix, g.n)
}

// Reset restarts the sequence.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
