package testutil

import (
	"fmt"
	"sync"
)

// FixedIDs returns predetermined ids in order.
//
//	ids := NewFixedIDs("order-1", "order-2")
//	ids.Generate() // "order-1"
//	ids.Generate() // "order-2"
//	ids.Generate() // panic: all ids consumed
//
// Panicking on exhaustion fails fast when a test triggers more id
// generations than it planned for.
//
// Thread-safety: FixedIDs is safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a generator over ids.
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// Generate returns the next id.
func (g *FixedIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic(fmt.Sprintf("FixedIDs: all %d ids consumed", len(g.ids)))
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
