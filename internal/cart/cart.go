package cart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/pokemart/internal/catalog"
	"github.com/roach88/pokemart/internal/metrics"
)

// Persister receives the full cart after every successful mutation.
type Persister interface {
	Save(ctx context.Context, items []Item) error
	Discard(ctx context.Context) error
}

// Cart is an ordered mapping from item id to Item. Every stored quantity is
// at least 1.
type Cart struct {
	entries map[int]*Item
	order   []int // insertion order of ids present in entries

	persister Persister
	metrics   *metrics.Metrics
}

// Option configures a Cart.
type Option func(*Cart)

// WithPersister writes the cart through p after every mutation.
func WithPersister(p Persister) Option {
	return func(c *Cart) { c.persister = p }
}

// WithMetrics records cart operations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cart) { c.metrics = m }
}

// New returns an empty cart.
func New(opts ...Option) *Cart {
	c := &Cart{entries: make(map[int]*Item)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddItem reserves quantity more units of item, validated against
// item.Stock as observed now. On rejection the cart is unchanged.
func (c *Cart) AddItem(ctx context.Context, item catalog.Item, quantity int) error {
	if item.ID < 1 {
		c.metrics.CartOp("add", "invalid")
		return fmt.Errorf("add item %d: %w", item.ID, ErrInvalidItem)
	}
	if quantity < 1 {
		c.metrics.CartOp("add", "invalid")
		return fmt.Errorf("add %d of item %d: %w", quantity, item.ID, ErrInvalidQuantity)
	}

	existing := c.Quantity(item.ID)
	// Compared as headroom so a huge quantity cannot wrap the sum.
	if quantity > item.Stock-existing {
		c.metrics.CartOp("add", "rejected")
		return &InsufficientStockError{
			ItemID:    item.ID,
			Name:      item.Name,
			Requested: quantity,
			InCart:    existing,
			Stock:     item.Stock,
		}
	}

	if e, ok := c.entries[item.ID]; ok {
		e.Quantity += quantity
	} else {
		c.insert(Item{ID: item.ID, Snapshot: item, Quantity: quantity}.clone())
	}
	c.metrics.CartOp("add", "ok")
	c.persist(ctx)
	return nil
}

// RemoveItem drops id from the cart. Removing an absent id is a no-op, but
// the cart is still persisted.
func (c *Cart) RemoveItem(ctx context.Context, id int) {
	c.remove(id)
	c.metrics.CartOp("remove", "ok")
	c.persist(ctx)
}

// UpdateQuantity sets the quantity of id directly. A quantity <= 0 removes
// the entry. The new quantity is not checked against stock; callers bound it
// using Available. Updating an absent id does nothing.
func (c *Cart) UpdateQuantity(ctx context.Context, id, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(ctx, id)
		return
	}
	e, ok := c.entries[id]
	if !ok {
		return
	}
	e.Quantity = quantity
	c.metrics.CartOp("update", "ok")
	c.persist(ctx)
}

// Clear empties the cart and discards the persisted record.
func (c *Cart) Clear(ctx context.Context) {
	c.entries = make(map[int]*Item)
	c.order = nil
	c.metrics.CartOp("clear", "ok")
	if c.persister == nil {
		return
	}
	if err := c.persister.Discard(ctx); err != nil {
		slog.Error("failed to discard cart record", "error", err)
		c.metrics.PersistFailed()
	}
}

// Settle releases the quantities in paid, which a checkout has paid for.
// Anything reserved beyond them stays in the cart. A cart left empty is
// cleared, which discards the persisted record.
func (c *Cart) Settle(ctx context.Context, paid []Item) {
	for _, p := range paid {
		e, ok := c.entries[p.ID]
		if !ok {
			continue
		}
		if e.Quantity <= p.Quantity {
			c.remove(p.ID)
			continue
		}
		e.Quantity -= p.Quantity
	}
	if len(c.order) == 0 {
		c.Clear(ctx)
		return
	}
	c.metrics.CartOp("settle", "ok")
	c.persist(ctx)
}

// Total is the sum of every entry's TotalPrice, recomputed on each call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range c.order {
		total = total.Add(c.entries[id].TotalPrice())
	}
	return total
}

// Count is the sum of quantities.
func (c *Cart) Count() int {
	n := 0
	for _, e := range c.entries {
		n += e.Quantity
	}
	return n
}

// Len is the number of distinct items.
func (c *Cart) Len() int { return len(c.order) }

// Quantity returns the reserved quantity of id, 0 if absent.
func (c *Cart) Quantity(id int) int {
	if e, ok := c.entries[id]; ok {
		return e.Quantity
	}
	return 0
}

// Get returns a copy of the entry for id.
func (c *Cart) Get(id int) (Item, bool) {
	e, ok := c.entries[id]
	if !ok {
		return Item{}, false
	}
	return e.clone(), true
}

// Items returns copies of the entries in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id].clone())
	}
	return out
}

// Available is how many more units of item can be reserved given its
// current stock. Compute it fresh: stock moves underneath the cart.
func (c *Cart) Available(item catalog.Item) int {
	return max(0, item.Stock-c.Quantity(item.ID))
}

func (c *Cart) insert(item Item) {
	c.entries[item.ID] = &item
	c.order = append(c.order, item.ID)
}

func (c *Cart) remove(id int) {
	if _, ok := c.entries[id]; !ok {
		return
	}
	delete(c.entries, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// persist writes the cart. Storage is advisory: failures are logged and the
// in-memory state stands.
func (c *Cart) persist(ctx context.Context) {
	if c.persister == nil {
		return
	}
	if err := c.persister.Save(ctx, c.Items()); err != nil {
		slog.Error("failed to persist cart", "items", c.Len(), "error", err)
		c.metrics.PersistFailed()
	}
}
