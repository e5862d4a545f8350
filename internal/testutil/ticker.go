package testutil

import (
	"sync"
	"time"
)

// ManualTicker is a scheduler whose ticks are fired by the test.
//
// The channel is unbuffered, so Tick blocks until the consumer has received
// the tick; after Tick returns the consumer is processing (or has processed)
// that tick.
type ManualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

// NewManualTicker creates a ticker with no pending ticks.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}
}

// C returns the tick channel.
func (m *ManualTicker) C() <-chan time.Time {
	return m.ch
}

// Tick delivers one tick. It returns false if the ticker was stopped or the
// tick was not received within a second.
func (m *ManualTicker) Tick() bool {
	select {
	case m.ch <- time.Time{}:
		return true
	case <-m.stopped:
		return false
	case <-time.After(time.Second):
		return false
	}
}

// Stop marks the ticker as stopped. Safe to call more than once.
func (m *ManualTicker) Stop() {
	m.once.Do(func() { close(m.stopped) })
}

// Stopped reports whether Stop has been called.
func (m *ManualTicker) Stopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}
