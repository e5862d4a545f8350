package catalog

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateID is returned when a catalog load contains the same id twice.
var ErrDuplicateID = errors.New("duplicate catalog item id")

// Catalog is the loaded set of items shared by the cart, the views and the
// stock oscillator.
//
// Thread-safety: all methods are safe for concurrent use. Items returned from
// Items and Get are copies; their Types slices are shared and must be treated
// as read-only.
type Catalog struct {
	mu    sync.RWMutex
	items []Item
	index map[int]int
}

// New creates a catalog holding items. See Replace for validation rules.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{index: make(map[int]int)}
	if err := c.Replace(items); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace swaps the catalog contents for items, in the given order.
// Every item is normalized and validated, and ids must be unique. On error
// the previous contents are kept.
func (c *Catalog) Replace(items []Item) error {
	next := make([]Item, len(items))
	index := make(map[int]int, len(items))
	for i, item := range items {
		item = Normalize(item)
		if err := Validate(item); err != nil {
			return err
		}
		if _, dup := index[item.ID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateID, item.ID)
		}
		index[item.ID] = i
		next[i] = item
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = next
	c.index = index
	return nil
}

// Items returns a snapshot of every item in load order.
func (c *Catalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the current state of item id.
func (c *Catalog) Get(id int) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// SetStock sets the stock of item id, clamping negative values to zero.
// It returns the previous stock and false if the id is unknown.
//
// This is the only mutation allowed after load.
func (c *Catalog) SetStock(id, stock int) (prev int, ok bool) {
	if stock < 0 {
		stock = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return 0, false
	}
	prev = c.items[i].Stock
	c.items[i].Stock = stock
	return prev, true
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
