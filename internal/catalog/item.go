package catalog

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Item is a sellable catalog entry.
type Item struct {
	ID     int             `json:"id" validate:"gte=1"`
	Name   string          `json:"name" validate:"required"`
	Types  []string        `json:"types" validate:"min=1,dive,required"`
	Price  decimal.Decimal `json:"price" validate:"gte=0"`
	Stock  int             `json:"stock" validate:"gte=0"`
	Height int             `json:"height,omitempty"`
	Weight int             `json:"weight,omitempty"`
	Image  string          `json:"image,omitempty" validate:"omitempty,uri"`
}

var itemValidate *validator.Validate

func init() {
	itemValidate = validator.New()

	// Prices are checked as float64 so the numeric tags apply to decimals.
	itemValidate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// Validate checks the item's structural invariants: positive id, non-empty
// name and type list, non-negative price and stock.
func Validate(item Item) error {
	if err := itemValidate.Struct(item); err != nil {
		return fmt.Errorf("invalid catalog item %d: %w", item.ID, err)
	}
	return nil
}

// NormalizeTypes lower-cases and trims tags, drops empty ones and removes
// duplicates while keeping the first-seen order. Tag order is significant
// for relevance ranking, so it is never sorted here.
func NormalizeTypes(types []string) []string {
	out := make([]string, 0, len(types))
	seen := make(map[string]struct{}, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Normalize returns a copy of item with a trimmed name and normalized types.
func Normalize(item Item) Item {
	item.Name = strings.TrimSpace(item.Name)
	item.Types = NormalizeTypes(item.Types)
	if item.Stock < 0 {
		item.Stock = 0
	}
	return item
}

// HasType reports whether the item carries tag t.
func HasType(item Item, t string) bool {
	for _, have := range item.Types {
		if have == t {
			return true
		}
	}
	return false
}

// FormattedName returns the display name with its first letter upper-cased.
func FormattedName(item Item) string {
	r, size := utf8.DecodeRuneInString(item.Name)
	if r == utf8.RuneError {
		return item.Name
	}
	return string(unicode.ToUpper(r)) + item.Name[size:]
}

// FormattedPrice returns the display price, e.g. "$42".
func FormattedPrice(item Item) string {
	return "$" + item.Price.String()
}
