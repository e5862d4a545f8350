package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrCatalogLoadFailed matches every error returned by a Provider.
var ErrCatalogLoadFailed = errors.New("catalog load failed")

// LoadError describes a failed provider call. Op names the step that failed
// (e.g. "list", "detail 25", "types").
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog load failed: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrCatalogLoadFailed and the underlying cause, so
// errors.Is works for either (e.g. context.Canceled).
func (e *LoadError) Unwrap() []error {
	return []error{ErrCatalogLoadFailed, e.Err}
}

// Provider supplies catalog data.
type Provider interface {
	// FetchCatalog returns up to limit items. limit <= 0 means all.
	FetchCatalog(ctx context.Context, limit int) ([]Item, error)

	// FetchAvailableTypes returns the tag taxonomy offered as filter choices.
	FetchAvailableTypes(ctx context.Context) ([]string, error)
}

// DefaultTypes is the static tag list used when the provider cannot supply
// a taxonomy.
var DefaultTypes = []string{
	"normal",
	"fire",
	"water",
	"grass",
	"electric",
	"ice",
	"fighting",
	"poison",
	"ground",
	"flying",
	"psychic",
	"bug",
	"rock",
	"ghost",
	"dark",
	"dragon",
	"steel",
	"fairy",
}

// TypesOrFallback asks p for the taxonomy and falls back to DefaultTypes on
// failure. The second result reports whether the fallback was used.
func TypesOrFallback(ctx context.Context, p Provider) ([]string, bool) {
	types, err := p.FetchAvailableTypes(ctx)
	if err != nil {
		slog.Warn("type taxonomy unavailable, using static list", "error", err)
		out := make([]string, len(DefaultTypes))
		copy(out, DefaultTypes)
		return out, true
	}
	return types, false
}

// StaticProvider serves a fixed item list. A nil Types falls back to
// DefaultTypes.
type StaticProvider struct {
	Items []Item
	Types []string
}

// FetchCatalog returns a copy of the first limit items.
func (p *StaticProvider) FetchCatalog(ctx context.Context, limit int) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Op: "static", Err: err}
	}
	n := len(p.Items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Item, n)
	copy(out, p.Items[:n])
	return out, nil
}

// FetchAvailableTypes returns the configured taxonomy.
func (p *StaticProvider) FetchAvailableTypes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Op: "types", Err: err}
	}
	src := p.Types
	if src == nil {
		src = DefaultTypes
	}
	out := make([]string, len(src))
	copy(out, src)
	return out, nil
}
