// Package testutil provides deterministic doubles for the random source and
// the scheduler so oscillator, checkout and catalog tests can drive exact
// sequences.
package testutil

import (
	"fmt"
	"sync"
)

// FixedRand replays predetermined values.
//
// Float64 and IntN consume from independent queues. IntN returns the next
// queued int and panics if it is outside [0, n) or the queue is exhausted,
// which catches a test that expects fewer draws than the code makes.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedRand struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
}

// NewFixedRand creates an empty FixedRand.
func NewFixedRand() *FixedRand {
	return &FixedRand{}
}

// WithFloats appends values returned by Float64.
func (r *FixedRand) WithFloats(vals ...float64) *FixedRand {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.floats = append(r.floats, vals...)
	return r
}

// WithInts appends values returned by IntN.
func (r *FixedRand) WithInts(vals ...int) *FixedRand {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ints = append(r.ints, vals...)
	return r
}

// Float64 returns the next queued float.
func (r *FixedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) == 0 {
		panic("FixedRand: floats exhausted")
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

// IntN returns the next queued int.
func (r *FixedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 {
		panic("FixedRand: ints exhausted")
	}
	v := r.ints[0]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("FixedRand: queued int %d outside [0, %d)", v, n))
	}
	r.ints = r.ints[1:]
	return v
}

// Remaining returns how many floats and ints are still queued.
func (r *FixedRand) Remaining() (floats, ints int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.floats), len(r.ints)
}
