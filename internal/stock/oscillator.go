package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/roach88/pokemart/internal/catalog"
	"github.com/roach88/pokemart/internal/metrics"
)

// Defaults match the storefront's drift model.
const (
	DefaultInterval    = 30 * time.Second
	DefaultProbability = 0.3
	DefaultMaxStep     = 2
)

// Rand is the random source the oscillator draws from.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Scheduler delivers ticks. Stop releases it; it is called exactly once when
// the oscillator stops.
type Scheduler interface {
	C() <-chan time.Time
	Stop()
}

// globalRand draws from the math/rand/v2 top-level source.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type intervalScheduler struct {
	t *time.Ticker
}

// NewIntervalScheduler ticks every d of wall time.
func NewIntervalScheduler(d time.Duration) Scheduler {
	return &intervalScheduler{t: time.NewTicker(d)}
}

func (s *intervalScheduler) C() <-chan time.Time { return s.t.C }

func (s *intervalScheduler) Stop() { s.t.Stop() }

// Dispatcher runs fn on the owner's single-writer loop and waits for it.
// It must return promptly with ctx.Err() once ctx is done.
type Dispatcher func(ctx context.Context, fn func()) error

// State is the oscillator lifecycle: Idle → Running → Stopped.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config tunes the drift.
type Config struct {
	// Probability that an item changes on a tick, in [0, 1].
	Probability float64
	// MaxStep bounds the magnitude of a single change.
	MaxStep int
}

// DefaultConfig returns probability 0.3 and steps of at most 2.
func DefaultConfig() Config {
	return Config{Probability: DefaultProbability, MaxStep: DefaultMaxStep}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.Probability < 0 || c.Probability > 1 {
		return fmt.Errorf("probability %v outside [0, 1]", c.Probability)
	}
	if c.MaxStep < 0 {
		return errors.New("max step must not be negative")
	}
	return nil
}

// Oscillator periodically perturbs catalog stock.
type Oscillator struct {
	catalog  *catalog.Catalog
	broker   *Broker
	rng      Rand
	clock    *Clock
	cfg      Config
	dispatch Dispatcher
	metrics  *metrics.Metrics

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures an Oscillator.
type Option func(*Oscillator)

// WithRand sets the random source.
func WithRand(r Rand) Option {
	return func(o *Oscillator) { o.rng = r }
}

// WithClock sets the sequence clock, e.g. to resume numbering.
func WithClock(c *Clock) Option {
	return func(o *Oscillator) { o.clock = c }
}

// WithConfig overrides DefaultConfig.
func WithConfig(c Config) Option {
	return func(o *Oscillator) { o.cfg = c }
}

// WithMetrics counts committed changes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Oscillator) { o.metrics = m }
}

// WithDispatcher runs every tick through d instead of on the oscillator's
// own goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(o *Oscillator) { o.dispatch = d }
}

// New creates an idle oscillator over cat publishing to broker.
func New(cat *catalog.Catalog, broker *Broker, opts ...Option) *Oscillator {
	o := &Oscillator{
		catalog: cat,
		broker:  broker,
		rng:     globalRand{},
		clock:   NewClock(),
		cfg:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Oscillator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start begins ticking on sched. It returns false, and leaves sched
// untouched, unless the oscillator is Idle. Cancelling ctx stops the
// oscillator as Stop does.
func (o *Oscillator) Start(ctx context.Context, sched Scheduler) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Idle {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	o.state = Running
	o.cancel = cancel
	o.done = make(chan struct{})

	slog.Info("stock oscillator starting",
		"probability", o.cfg.Probability,
		"max_step", o.cfg.MaxStep,
		"items", o.catalog.Len(),
	)
	go o.run(ctx, sched)
	return true
}

// Stop cancels the schedule and waits for the tick loop to exit. It is a
// no-op unless the oscillator is Running.
func (o *Oscillator) Stop() {
	o.mu.Lock()
	if o.state != Running {
		o.mu.Unlock()
		return
	}
	o.state = Stopped
	o.cancel()
	done := o.done
	o.mu.Unlock()

	<-done
	slog.Info("stock oscillator stopped", "seq", o.clock.Current())
}

func (o *Oscillator) run(ctx context.Context, sched Scheduler) {
	defer close(o.done)
	defer sched.Stop()
	defer func() {
		o.mu.Lock()
		o.state = Stopped
		o.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sched.C():
			if o.dispatch == nil {
				o.Tick()
				continue
			}
			if err := o.dispatch(ctx, func() { o.Tick() }); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("stock tick not dispatched", "error", err)
			}
		}
	}
}

// Tick runs one drift step over every item and returns the committed
// changes in catalog order.
//
// For each item, with probability p a signed step of magnitude
// [0, MaxStep] is applied, clamped at zero. Unchanged items emit nothing.
func (o *Oscillator) Tick() []Change {
	var changes []Change
	for _, item := range o.catalog.Items() {
		if o.rng.Float64() >= o.cfg.Probability {
			continue
		}
		sign := 1
		if o.rng.Float64() < 0.5 {
			sign = -1
		}
		magnitude := o.rng.IntN(o.cfg.MaxStep + 1)

		newStock := max(0, item.Stock+sign*magnitude)
		if newStock == item.Stock {
			continue
		}
		if _, ok := o.catalog.SetStock(item.ID, newStock); !ok {
			continue
		}

		c := Change{ItemID: item.ID, NewStock: newStock, Seq: o.clock.Next()}
		o.broker.Publish(c)
		o.metrics.StockChanged()
		changes = append(changes, c)
		slog.Debug("stock changed", "item", item.ID, "from", item.Stock, "to", newStock, "seq", c.Seq)
	}
	return changes
}
