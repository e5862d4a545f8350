// Package storefront is the composition root of the shop: it owns the
// catalog, the cart, the stock oscillator and checkout, and serializes every
// mutation on a single-writer loop.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine
//   - every other method: safe from any goroutine; mutations are queued as
//     tasks and executed one at a time by Run
//
// Catalog reads do not need the loop: the catalog is guarded by its own lock
// and is only written by Load and by oscillator ticks, both of which run as
// tasks.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/pokemart/internal/cart"
	"github.com/roach88/pokemart/internal/catalog"
	"github.com/roach88/pokemart/internal/checkout"
	"github.com/roach88/pokemart/internal/filter"
	"github.com/roach88/pokemart/internal/metrics"
	"github.com/roach88/pokemart/internal/stock"
)

var (
	// ErrClosed is returned for work submitted after Close or after Run
	// returned.
	ErrClosed = errors.New("storefront closed")
	// ErrUnknownItem is returned when an id is not in the catalog.
	ErrUnknownItem = errors.New("unknown item")
	// ErrNotLoaded is returned when the oscillator is started before the
	// catalog has been loaded.
	ErrNotLoaded = errors.New("catalog not loaded")
)

// DefaultLimit is how many items Load requests from the provider.
const DefaultLimit = 151

// Options wires a Controller.
type Options struct {
	Provider  catalog.Provider
	Cart      *cart.Cart          // nil starts an empty, unpersisted cart
	Processor *checkout.Processor // nil uses checkout defaults
	Metrics   *metrics.Metrics
	Limit     int          // 0 means DefaultLimit
	Stock     stock.Config // zero value means stock.DefaultConfig
	StockRand stock.Rand   // nil uses math/rand/v2
}

// Listing is a catalog item annotated with what the cart leaves available.
type Listing struct {
	catalog.Item
	InCart    int `json:"inCart"`
	Available int `json:"available"`
}

// CartView is a consistent snapshot of the cart.
type CartView struct {
	Items []cart.Item     `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Controller is the storefront's single-writer state owner.
type Controller struct {
	provider  catalog.Provider
	catalog   *catalog.Catalog
	cart      *cart.Cart
	broker    *stock.Broker
	osc       *stock.Oscillator
	processor *checkout.Processor
	metrics   *metrics.Metrics
	limit     int

	queue  *taskQueue
	loaded chan struct{} // closed after the first successful Load
}

// New builds a controller. Call Run before submitting work.
func New(opts Options) *Controller {
	cat, _ := catalog.New(nil)

	c := &Controller{
		provider:  opts.Provider,
		catalog:   cat,
		cart:      opts.Cart,
		broker:    stock.NewBroker(opts.Metrics),
		processor: opts.Processor,
		metrics:   opts.Metrics,
		limit:     opts.Limit,
		queue:     newTaskQueue(),
		loaded:    make(chan struct{}),
	}
	if c.cart == nil {
		c.cart = cart.New(cart.WithMetrics(opts.Metrics))
	}
	if c.processor == nil {
		c.processor = checkout.NewProcessor()
	}
	if c.limit <= 0 {
		c.limit = DefaultLimit
	}

	stockCfg := opts.Stock
	if stockCfg == (stock.Config{}) {
		stockCfg = stock.DefaultConfig()
	}
	oscOpts := []stock.Option{
		stock.WithConfig(stockCfg),
		stock.WithMetrics(opts.Metrics),
		stock.WithDispatcher(c.dispatch),
	}
	if opts.StockRand != nil {
		oscOpts = append(oscOpts, stock.WithRand(opts.StockRand))
	}
	c.osc = stock.New(c.catalog, c.broker, oscOpts...)
	return c
}

// Run executes queued tasks until ctx is cancelled or Close is called.
func (c *Controller) Run(ctx context.Context) error {
	slog.Info("storefront loop starting")

	for {
		if t, ok := c.queue.TryDequeue(); ok {
			c.execute(t)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("storefront loop stopping: context cancelled")
			c.failPending(c.queue.Close())
			return ctx.Err()

		case <-c.queue.Wait():
			// The signal channel closes with the queue.
			if c.queue.Len() == 0 && c.queue.Closed() {
				slog.Info("storefront loop stopping: closed")
				return nil
			}
		}
	}
}

// execute runs one task. CRITICAL: called only from the Run goroutine.
func (c *Controller) execute(t *task) {
	if err := t.ctx.Err(); err != nil {
		t.done <- err
		return
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %s panicked: %v", t.name, r)
				slog.Error("storefront task panicked", "task", t.name, "panic", r)
			}
		}()
		err = t.fn(t.ctx)
	}()
	t.done <- err
}

func (c *Controller) failPending(pending []*task) {
	for _, t := range pending {
		t.done <- ErrClosed
	}
}

// do runs fn on the loop and waits for its result or for ctx.
func (c *Controller) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	t := &task{ctx: ctx, name: name, fn: fn, done: make(chan error, 1)}
	if !c.queue.Enqueue(t) {
		return ErrClosed
	}
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch adapts the loop for the oscillator.
func (c *Controller) dispatch(ctx context.Context, fn func()) error {
	return c.do(ctx, "stock-tick", func(context.Context) error {
		fn()
		return nil
	})
}

// Load fetches the catalog from the provider and installs it. The fetch
// runs on the caller's goroutine; nothing is installed if ctx is cancelled
// first. Provider failures are returned as-is.
func (c *Controller) Load(ctx context.Context) error {
	start := time.Now()
	items, err := c.provider.FetchCatalog(ctx, c.limit)
	c.metrics.CatalogLoaded(time.Since(start).Seconds(), err)
	if err != nil {
		return err
	}

	return c.do(ctx, "load", func(ctx context.Context) error {
		if err := c.catalog.Replace(items); err != nil {
			return fmt.Errorf("install catalog: %w", err)
		}
		select {
		case <-c.loaded:
		default:
			close(c.loaded)
		}
		slog.Info("catalog loaded", "items", len(items), "duration", time.Since(start))
		return nil
	})
}

// Loaded reports whether a catalog has been installed.
func (c *Controller) Loaded() bool {
	select {
	case <-c.loaded:
		return true
	default:
		return false
	}
}

// StartStock starts the oscillator on sched. The catalog must be loaded.
// Returns false if the oscillator was already started or stopped.
func (c *Controller) StartStock(ctx context.Context, sched stock.Scheduler) (bool, error) {
	if !c.Loaded() {
		return false, ErrNotLoaded
	}
	return c.osc.Start(ctx, sched), nil
}

// StockState returns the oscillator state.
func (c *Controller) StockState() stock.State {
	return c.osc.State()
}

// Subscribe returns a subscription to stock changes.
func (c *Controller) Subscribe(buffer int) *stock.Subscription {
	return c.broker.Subscribe(buffer)
}

// Catalog returns the live catalog for read-only use.
func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// Types returns the provider's type list, or the static fallback when the
// provider fails. The bool reports whether the fallback was used.
func (c *Controller) Types(ctx context.Context) ([]string, bool) {
	return catalog.TypesOrFallback(ctx, c.provider)
}

// Browse applies criteria to the current catalog and annotates each result
// with the cart's reservation of it.
func (c *Controller) Browse(ctx context.Context, criteria filter.Criteria) ([]Listing, error) {
	var out []Listing
	err := c.do(ctx, "browse", func(context.Context) error {
		items := filter.Apply(c.catalog.Items(), criteria)
		out = make([]Listing, len(items))
		for i, item := range items {
			out[i] = Listing{
				Item:      item,
				InCart:    c.cart.Quantity(item.ID),
				Available: c.cart.Available(item),
			}
		}
		return nil
	})
	return out, err
}

// Cart returns a snapshot of the cart.
func (c *Controller) Cart(ctx context.Context) (CartView, error) {
	var view CartView
	err := c.do(ctx, "cart", func(context.Context) error {
		view = c.cartView()
		return nil
	})
	return view, err
}

func (c *Controller) cartView() CartView {
	return CartView{
		Items: c.cart.Items(),
		Count: c.cart.Count(),
		Total: c.cart.Total(),
	}
}

// AddItem reserves quantity units of item id against its current stock.
func (c *Controller) AddItem(ctx context.Context, id, quantity int) error {
	return c.do(ctx, "add", func(ctx context.Context) error {
		item, ok := c.catalog.Get(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownItem, id)
		}
		return c.cart.AddItem(ctx, item, quantity)
	})
}

// RemoveItem drops id from the cart.
func (c *Controller) RemoveItem(ctx context.Context, id int) error {
	return c.do(ctx, "remove", func(ctx context.Context) error {
		c.cart.RemoveItem(ctx, id)
		return nil
	})
}

// UpdateQuantity sets the quantity of id, bounded by the item's current
// stock when the item is in the catalog. The cart itself does not bound it.
func (c *Controller) UpdateQuantity(ctx context.Context, id, quantity int) error {
	return c.do(ctx, "update", func(ctx context.Context) error {
		if item, ok := c.catalog.Get(id); ok && quantity > item.Stock {
			return &cart.InsufficientStockError{
				ItemID:    id,
				Name:      item.Name,
				Requested: quantity,
				InCart:    c.cart.Quantity(id),
				Stock:     item.Stock,
			}
		}
		c.cart.UpdateQuantity(ctx, id, quantity)
		return nil
	})
}

// ClearCart empties the cart.
func (c *Controller) ClearCart(ctx context.Context) error {
	return c.do(ctx, "clear", func(ctx context.Context) error {
		c.cart.Clear(ctx)
		return nil
	})
}

// Checkout pays for the current cart. The simulated payment runs off the
// loop and honours ctx. On approval exactly the paid quantities are released
// from the cart; anything reserved while the payment was in flight stays.
// Nothing is released if ctx was cancelled in the meantime.
func (c *Controller) Checkout(ctx context.Context, payment checkout.Payment) (checkout.Receipt, error) {
	view, err := c.Cart(ctx)
	if err != nil {
		return checkout.Receipt{}, err
	}

	receipt, err := c.processor.Process(ctx, view.Total, view.Count, payment)
	switch {
	case err == nil:
		c.metrics.Checkout("approved")
	case errors.Is(err, checkout.ErrPaymentDeclined):
		c.metrics.Checkout("declined")
		return checkout.Receipt{}, err
	case errors.Is(err, checkout.ErrPaymentInvalid):
		c.metrics.Checkout("invalid")
		return checkout.Receipt{}, err
	case errors.Is(err, checkout.ErrEmptyCart):
		c.metrics.Checkout("empty")
		return checkout.Receipt{}, err
	default:
		c.metrics.Checkout("canceled")
		return checkout.Receipt{}, err
	}

	err = c.do(ctx, "settle", func(ctx context.Context) error {
		c.cart.Settle(ctx, view.Items)
		return nil
	})
	if err != nil {
		return checkout.Receipt{}, err
	}
	return receipt, nil
}

// Close stops the oscillator, closes stock subscriptions and stops the
// loop. Work still queued fails with ErrClosed.
func (c *Controller) Close() {
	c.osc.Stop()
	c.broker.Close()
	c.failPending(c.queue.Close())
}
