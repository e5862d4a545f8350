package filter

import "github.com/roach88/pokemart/internal/catalog"

// Relevance weights.
const (
	weightExactSet  = 1000
	weightMatch     = 100
	weightPrimary   = 30
	weightSecondary = 15
)

// Score ranks an item's types against the desired (selected) types:
//
//	1000 if the item's type set is exactly the desired set
//	+ 100 per desired type the item has
//	+  30 if the first types agree
//	+  15 if a second desired type exists and the second types agree
//
// Tags are compared case-insensitively.
func Score(types, desired []string) int {
	types = catalog.NormalizeTypes(types)
	desired = catalog.NormalizeTypes(desired)
	if len(desired) == 0 {
		return 0
	}

	have := make(map[string]struct{}, len(types))
	for _, t := range types {
		have[t] = struct{}{}
	}
	matchCount := 0
	for _, d := range desired {
		if _, ok := have[d]; ok {
			matchCount++
		}
	}

	score := matchCount * weightMatch
	if matchCount == len(desired) && len(types) == len(desired) {
		score += weightExactSet
	}
	if len(types) > 0 && types[0] == desired[0] {
		score += weightPrimary
	}
	if len(desired) > 1 && len(types) > 1 && types[1] == desired[1] {
		score += weightSecondary
	}
	return score
}
