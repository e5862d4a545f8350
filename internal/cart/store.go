package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/pokemart/internal/metrics"
	"github.com/roach88/pokemart/internal/store"
)

// DefaultKey is the logical key the cart record is stored under.
const DefaultKey = "pokemon_cart"

// LoadReport describes what Load found.
type LoadReport struct {
	Found   bool           // a record existed
	Loaded  int            // entries reconstructed
	Skipped []SkippedEntry // entries dropped
	Err     error          // corrupt or unreadable record; the cart started empty
}

// Outcome summarizes the report as one word for logs and metrics.
func (r LoadReport) Outcome() string {
	switch {
	case errors.Is(r.Err, ErrPersistenceCorrupt):
		return "corrupt"
	case r.Err != nil:
		return "unreadable"
	case !r.Found:
		return "empty"
	default:
		return "loaded"
	}
}

// Store persists the cart record in a store.KV.
type Store struct {
	kv      store.KV
	key     string
	metrics *metrics.Metrics
}

// NewStore returns a Store writing under key (DefaultKey if empty).
func NewStore(kv store.KV, key string, m *metrics.Metrics) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key, metrics: m}
}

// Key returns the logical key of the record.
func (s *Store) Key() string { return s.key }

// Save replaces the stored record with items.
func (s *Store) Save(ctx context.Context, items []Item) error {
	data, err := Encode(items)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Discard deletes the stored record.
func (s *Store) Discard(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("discard cart: %w", err)
	}
	return nil
}

// Load reads the stored record. It never fails: a missing record yields an
// empty cart, a corrupt one is discarded, and the problem is described in
// the report.
func (s *Store) Load(ctx context.Context) ([]Item, LoadReport) {
	var report LoadReport
	defer func() { s.metrics.CartLoaded(report.Outcome(), len(report.Skipped)) }()

	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, report
	}
	if err != nil {
		report.Err = fmt.Errorf("read cart record: %w", err)
		slog.Warn("cart record unreadable, starting empty", "key", s.key, "error", err)
		return nil, report
	}
	report.Found = true

	items, skipped, err := Decode(data)
	if err != nil {
		report.Err = err
		slog.Warn("discarding corrupt cart record", "key", s.key, "error", err)
		if derr := s.kv.Delete(ctx, s.key); derr != nil {
			slog.Error("failed to discard corrupt cart record", "key", s.key, "error", derr)
		}
		return nil, report
	}

	for _, sk := range skipped {
		slog.Debug("skipped cart entry", "key", s.key, "index", sk.Index, "id", sk.ID, "reason", sk.Reason)
	}
	report.Skipped = skipped
	report.Loaded = len(items)
	return items, report
}

// Restore builds a cart from the stored record, wired to persist back into
// s.
func Restore(ctx context.Context, s *Store, opts ...Option) (*Cart, LoadReport) {
	items, report := s.Load(ctx)
	c := New(append([]Option{WithPersister(s), WithMetrics(s.metrics)}, opts...)...)
	for _, it := range items {
		c.insert(it)
	}
	slog.Debug("cart restored", "key", s.key, "outcome", report.Outcome(), "items", c.Len())
	return c, report
}

var _ Persister = (*Store)(nil)
