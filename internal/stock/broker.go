package stock

import (
	"slices"
	"sync"

	"github.com/roach88/pokemart/internal/metrics"
)

// Change announces a committed stock mutation.
type Change struct {
	ItemID   int   `json:"itemId"`
	NewStock int   `json:"newStock"`
	Seq      int64 `json:"seq"`
}

// Broker fans Changes out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the notification.
type Broker struct {
	mu      sync.RWMutex
	subs    []*Subscription
	closed  bool
	metrics *metrics.Metrics
}

// NewBroker creates a broker. m may be nil.
func NewBroker(m *metrics.Metrics) *Broker {
	return &Broker{metrics: m}
}

// Subscription receives Changes on C until Close.
type Subscription struct {
	C <-chan Change

	ch     chan Change
	broker *Broker
	once   sync.Once
}

// Subscribe registers a subscriber with the given channel buffer. A buffer
// below 1 is raised to 1. Subscribing to a closed broker returns a
// subscription whose channel is already closed.
func (b *Broker) Subscribe(buffer int) *Subscription {
	ch := make(chan Change, max(buffer, 1))
	sub := &Subscription{C: ch, ch: ch, broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(ch) })
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Publish delivers c to every subscriber with room in its buffer and
// returns how many received it.
func (b *Broker) Publish(c Change) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs {
		select {
		case sub.ch <- c:
			delivered++
		default:
			b.metrics.NotificationDropped()
		}
	}
	return delivered
}

// Len returns the number of live subscriptions.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription. Later Subscribe calls get closed
// subscriptions and Publish reaches nobody.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		sub.once.Do(func() { close(sub.ch) })
	}
	b.subs = nil
}

// Close unregisters the subscription and closes C. Safe to call more than
// once and after the broker itself was closed.
func (s *Subscription) Close() {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = slices.DeleteFunc(b.subs, func(x *Subscription) bool { return x == s })
	s.once.Do(func() { close(s.ch) })
}
