// Package filter implements the catalog filter and sort pipeline.
//
// Apply is a pure function of (items, criteria): it never mutates its inputs
// and is cheap enough to call on every criteria change.
//
// When a type filter is active, results are ranked by relevance (Score) with
// ties broken by ascending id; otherwise they are ordered by the sort key,
// again with ascending id as the final tie-break, so every ordering is total
// and deterministic.
package filter
