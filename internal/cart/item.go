package cart

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/pokemart/internal/catalog"
)

// Item is a reservation of Quantity units of a catalog item. Snapshot is the
// item as it was when first added; its Price is frozen.
type Item struct {
	ID       int          `json:"id"`
	Snapshot catalog.Item `json:"pokemon"`
	Quantity int          `json:"quantity"`
}

// UnitPrice is the frozen price per unit.
func (i Item) UnitPrice() decimal.Decimal {
	return i.Snapshot.Price
}

// TotalPrice is UnitPrice times Quantity.
func (i Item) TotalPrice() decimal.Decimal {
	return i.Snapshot.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) clone() Item {
	i.Snapshot.Types = slices.Clone(i.Snapshot.Types)
	return i
}
