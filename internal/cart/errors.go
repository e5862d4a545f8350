package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuantity is returned when a requested quantity is below 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrInvalidItem is returned when an item without a positive id is added.
	ErrInvalidItem = errors.New("item id must be positive")

	// ErrInsufficientStock matches every *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrPersistenceCorrupt marks a stored cart record that could not be
	// decoded and was discarded.
	ErrPersistenceCorrupt = errors.New("corrupt cart record")

	// ErrEntrySkipped marks a single persisted entry that could not be
	// reconstructed.
	ErrEntrySkipped = errors.New("cart entry skipped")
)

// InsufficientStockError reports a rejected reservation.
type InsufficientStockError struct {
	ItemID    int
	Name      string
	Requested int
	InCart    int
	Stock     int
}

// Available is how many more units could have been reserved.
func (e *InsufficientStockError) Available() int {
	return max(0, e.Stock-e.InCart)
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (#%d): requested %d, %d in cart, %d in stock",
		e.Name, e.ItemID, e.Requested, e.InCart, e.Stock)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// SkippedEntry describes one persisted entry dropped during reconstruction.
type SkippedEntry struct {
	Index  int // position in the stored list
	ID     int // pair id, 0 if unreadable
	Reason string
}

func (e SkippedEntry) Error() string {
	return fmt.Sprintf("entry %d (id %d): %s", e.Index, e.ID, e.Reason)
}

func (e SkippedEntry) Unwrap() error { return ErrEntrySkipped }
