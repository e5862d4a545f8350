package filter

import (
	"github.com/shopspring/decimal"
)

// SortKey selects the plain-mode ordering.
type SortKey string

const (
	SortID        SortKey = "id"
	SortIDDesc    SortKey = "id-desc"
	SortName      SortKey = "name"
	SortNameDesc  SortKey = "name-desc"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortStock     SortKey = "stock"
)

var sortKeys = []SortKey{SortID, SortIDDesc, SortName, SortNameDesc, SortPriceAsc, SortPriceDesc, SortStock}

// SortKeys returns the recognized sort keys in display order.
func SortKeys() []SortKey {
	out := make([]SortKey, len(sortKeys))
	copy(out, sortKeys)
	return out
}

// ParseSortKey maps s to a SortKey. Unrecognized values become SortID.
func ParseSortKey(s string) SortKey {
	for _, k := range sortKeys {
		if string(k) == s {
			return k
		}
	}
	return SortID
}

// PriceRange is an inclusive price interval. A bound that is not Valid is
// open on that side.
type PriceRange struct {
	Min decimal.NullDecimal
	Max decimal.NullDecimal
}

// Between returns the closed range [min, max].
func Between(min, max decimal.Decimal) PriceRange {
	return PriceRange{
		Min: decimal.NullDecimal{Decimal: min, Valid: true},
		Max: decimal.NullDecimal{Decimal: max, Valid: true},
	}
}

// Contains reports whether price lies within the range.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	if r.Min.Valid && price.LessThan(r.Min.Decimal) {
		return false
	}
	if r.Max.Valid && price.GreaterThan(r.Max.Decimal) {
		return false
	}
	return true
}

// Criteria is the transient filter state owned by the caller.
type Criteria struct {
	Search        string
	SelectedTypes []string // order matters for relevance scoring
	Price         PriceRange
	Sort          SortKey
}

// DefaultPriceMax is the upper bound of the default price slider.
var DefaultPriceMax = decimal.NewFromInt(150)

// DefaultCriteria is the cleared filter state: no search, no types,
// price 0..150, sorted by id.
func DefaultCriteria() Criteria {
	return Criteria{
		Price: Between(decimal.Zero, DefaultPriceMax),
		Sort:  SortID,
	}
}
