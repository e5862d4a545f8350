package filter

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pokemart/internal/catalog"
)

// Apply filters and orders items according to c. The result is a new slice;
// neither items nor c are modified.
func Apply(items []catalog.Item, c Criteria) []catalog.Item {
	term := normalizeSearch(c.Search)
	desired := catalog.NormalizeTypes(c.SelectedTypes)

	lower := cases.Lower(language.Und)
	out := make([]catalog.Item, 0, len(items))
	scores := make(map[int]int)
	for _, item := range items {
		if term != "" && !matchesSearch(lower, item, term) {
			continue
		}
		if len(desired) > 0 {
			types := catalog.NormalizeTypes(item.Types)
			if !intersects(types, desired) {
				continue
			}
			scores[item.ID] = Score(types, desired)
		}
		if !c.Price.Contains(item.Price) {
			continue
		}
		out = append(out, item)
	}

	if len(desired) > 0 {
		sortByRelevance(out, scores)
	} else {
		sortBy(out, ParseSortKey(string(c.Sort)))
	}
	return out
}

// AvailableTypes returns the distinct tags present across items, sorted
// alphabetically.
func AvailableTypes(items []catalog.Item) []string {
	seen := make(map[string]struct{})
	for _, item := range items {
		for _, t := range catalog.NormalizeTypes(item.Types) {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func normalizeSearch(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

func matchesSearch(lower cases.Caser, item catalog.Item, term string) bool {
	name := lower.String(norm.NFC.String(item.Name))
	if strings.Contains(name, term) {
		return true
	}
	return strings.Contains(strconv.Itoa(item.ID), term)
}

func intersects(types, desired []string) bool {
	for _, t := range types {
		if slices.Contains(desired, t) {
			return true
		}
	}
	return false
}

func sortByRelevance(items []catalog.Item, scores map[int]int) {
	slices.SortStableFunc(items, func(a, b catalog.Item) int {
		if d := scores[b.ID] - scores[a.ID]; d != 0 {
			return d
		}
		return a.ID - b.ID
	})
}

func sortBy(items []catalog.Item, key SortKey) {
	var cmp func(a, b catalog.Item) int

	switch key {
	case SortIDDesc:
		cmp = func(a, b catalog.Item) int { return b.ID - a.ID }
	case SortName, SortNameDesc:
		// Collators keep internal buffers, so one per call.
		col := collate.New(language.English, collate.IgnoreCase)
		cmp = func(a, b catalog.Item) int { return col.CompareString(a.Name, b.Name) }
		if key == SortNameDesc {
			asc := cmp
			cmp = func(a, b catalog.Item) int { return asc(b, a) }
		}
	case SortPriceAsc:
		cmp = func(a, b catalog.Item) int { return a.Price.Cmp(b.Price) }
	case SortPriceDesc:
		cmp = func(a, b catalog.Item) int { return b.Price.Cmp(a.Price) }
	case SortStock:
		cmp = func(a, b catalog.Item) int { return b.Stock - a.Stock }
	default:
		cmp = func(a, b catalog.Item) int { return 0 }
	}

	slices.SortStableFunc(items, func(a, b catalog.Item) int {
		if d := cmp(a, b); d != 0 {
			return d
		}
		return a.ID - b.ID
	})
}
