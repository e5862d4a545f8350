package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/pokemart/internal/catalog"
)

// RecordVersion is the schema version written by Encode. Version 0 is the
// legacy bare array of [id, entry] pairs, accepted by Decode only.
const RecordVersion = 1

type record struct {
	Version int               `json:"version"`
	Entries []json.RawMessage `json:"entries"`
}

type entryBody struct {
	ID        int             `json:"id"`
	Pokemon   catalog.Item    `json:"pokemon"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Encode serializes items, in order, as a versioned record.
func Encode(items []Item) ([]byte, error) {
	rec := record{Version: RecordVersion, Entries: make([]json.RawMessage, 0, len(items))}
	for _, it := range items {
		pair, err := json.Marshal([2]any{it.ID, entryBody{
			ID:        it.ID,
			Pokemon:   it.Snapshot,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice(),
		}})
		if err != nil {
			return nil, fmt.Errorf("encode entry %d: %w", it.ID, err)
		}
		rec.Entries = append(rec.Entries, pair)
	}
	return json.Marshal(rec)
}

// Decode parses a stored record. A record that cannot be read as a whole
// returns an error wrapping ErrPersistenceCorrupt. Entries that cannot be
// rebuilt are skipped and returned alongside the items that could.
func Decode(data []byte) ([]Item, []SkippedEntry, error) {
	entries, err := decodeEntries(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
	}

	items := make([]Item, 0, len(entries))
	var skipped []SkippedEntry
	seen := make(map[int]struct{}, len(entries))
	for i, raw := range entries {
		it, skip := decodeEntry(i, raw)
		if skip != nil {
			skipped = append(skipped, *skip)
			continue
		}
		if _, dup := seen[it.ID]; dup {
			skipped = append(skipped, SkippedEntry{Index: i, ID: it.ID, Reason: "duplicate id"})
			continue
		}
		seen[it.ID] = struct{}{}
		items = append(items, it)
	}
	return items, skipped, nil
}

func decodeEntries(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty record")
	}

	switch data[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	case '{':
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		if rec.Version != RecordVersion {
			return nil, fmt.Errorf("unsupported record version %d", rec.Version)
		}
		return rec.Entries, nil
	default:
		return nil, fmt.Errorf("record is neither an object nor an array")
	}
}

// rawBody keeps presence information the typed body loses.
type rawBody struct {
	ID        *int             `json:"id"`
	Pokemon   *json.RawMessage `json:"pokemon"`
	Quantity  *json.Number     `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

func decodeEntry(index int, raw json.RawMessage) (Item, *SkippedEntry) {
	skip := func(id int, format string, args ...any) (Item, *SkippedEntry) {
		return Item{}, &SkippedEntry{Index: index, ID: id, Reason: fmt.Sprintf(format, args...)}
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return skip(0, "not an [id, entry] pair")
	}

	var id int
	if err := json.Unmarshal(pair[0], &id); err != nil {
		return skip(0, "id is not an integer")
	}
	if id < 1 {
		return skip(id, "id must be positive")
	}

	var body rawBody
	dec := json.NewDecoder(bytes.NewReader(pair[1]))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return skip(id, "malformed entry: %v", err)
	}
	if body.ID != nil && *body.ID != id {
		return skip(id, "entry id %d does not match pair id", *body.ID)
	}
	if body.Pokemon == nil {
		return skip(id, "missing snapshot")
	}

	var snap catalog.Item
	if err := json.Unmarshal(*body.Pokemon, &snap); err != nil {
		return skip(id, "malformed snapshot: %v", err)
	}
	snap = catalog.Normalize(snap)
	snap.ID = id
	if strings.TrimSpace(snap.Name) == "" {
		return skip(id, "snapshot has no name")
	}

	quantity := 1
	if body.Quantity != nil {
		q, err := body.Quantity.Int64()
		if err != nil || q < 1 {
			return skip(id, "quantity %s is not a positive integer", body.Quantity.String())
		}
		quantity = int(q)
	}

	if body.UnitPrice != nil {
		snap.Price = *body.UnitPrice
	}
	if snap.Price.IsNegative() {
		return skip(id, "negative price %s", snap.Price)
	}

	return Item{ID: id, Snapshot: snap, Quantity: quantity}, nil
}
