package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/shopspring/decimal"
)

//go:embed schema.cue
var fixtureSchema string

// FixtureError reports a fixture that does not satisfy the item schema.
type FixtureError struct {
	Message string
	Pos     token.Pos
}

func (e *FixtureError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

type fixtureItem struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Types  []string `json:"types"`
	Price  float64  `json:"price"`
	Stock  int      `json:"stock"`
	Height int      `json:"height"`
	Weight int      `json:"weight"`
	Image  string   `json:"image"`
}

// LoadFixture reads a catalog fixture file. The file is CUE (JSON is valid
// CUE) with a top-level "items" list, e.g.
//
//	items: [
//		{id: 1, name: "bulbasaur", types: ["grass", "poison"], price: 42, stock: 7},
//	]
func LoadFixture(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(path, data)
}

// ParseFixture validates data against the embedded item schema and decodes it.
func ParseFixture(filename string, data []byte) ([]Item, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(fixtureSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile fixture schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var raw struct {
		Items []fixtureItem `json:"items"`
	}
	if err := v.Decode(&raw); err != nil {
		return nil, formatCUEError(err)
	}

	items := make([]Item, 0, len(raw.Items))
	for _, r := range raw.Items {
		item := Normalize(Item{
			ID:     r.ID,
			Name:   r.Name,
			Types:  r.Types,
			Price:  decimal.NewFromFloat(r.Price),
			Stock:  r.Stock,
			Height: r.Height,
			Weight: r.Weight,
			Image:  r.Image,
		})
		if err := Validate(item); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// NewFixtureProvider loads path into a StaticProvider.
func NewFixtureProvider(path string) (*StaticProvider, error) {
	items, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	return &StaticProvider{Items: items}, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	fe := &FixtureError{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		fe.Pos = positions[0]
	}
	return fe
}
