package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/mmcdole/crate/internal/domain"
)

// Match scores, lower is better.
const (
	scoreExact    = 0
	scorePrefix   = 10
	scoreContains = 50
	scoreOther    = 100
)

// rankMatches orders search results: exact title, title prefix, then the
// rest. The sort is stable so ties keep store order.
func rankMatches(items []domain.CatalogItem, query string) []domain.CatalogItem {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(items) == 0 {
		return items
	}

	type rankedItem struct {
		item  domain.CatalogItem
		score int
	}

	ranked := make([]rankedItem, len(items))
	for i, item := range items {
		ranked[i] = rankedItem{item: item, score: matchScore(strings.ToLower(item.Title), query)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	results := make([]domain.CatalogItem, len(ranked))
	for i, r := range ranked {
		results[i] = r.item
	}
	return results
}

func matchScore(title, query string) int {
	switch {
	case title == query:
		return scoreExact
	case strings.HasPrefix(title, query):
		return scorePrefix
	case strings.Contains(title, query):
		return scoreContains
	default:
		return scoreOther
	}
}

// suggestIndex implements sahilm/fuzzy.Source over "title artist" strings.
type suggestIndex struct {
	items []domain.CatalogItem
	lower []string
}

func newSuggestIndex(items []domain.CatalogItem) *suggestIndex {
	idx := &suggestIndex{items: items, lower: make([]string, len(items))}
	for i, item := range items {
		idx.lower[i] = strings.ToLower(item.Title + " " + item.PrimaryArtist)
	}
	return idx
}

// String returns the lowercase searchable text at index i.
func (idx *suggestIndex) String(i int) string { return idx.lower[i] }

// Len returns the number of items.
func (idx *suggestIndex) Len() int { return len(idx.items) }

type suggestion struct {
	index    int
	score    int
	distance int
}

// suggest returns up to limit items for a possibly misspelled query.
// Subsequence matches come first, ordered by match score and then by edit
// distance to the title. Titles within a small edit distance of the query
// follow, which catches transpositions a subsequence match misses.
func suggest(items []domain.CatalogItem, query string, limit int) []domain.CatalogItem {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(items) == 0 {
		return nil
	}

	idx := newSuggestIndex(items)
	seen := make(map[int]bool)
	var found []suggestion

	for _, m := range sfuzzy.FindFrom(query, idx) {
		seen[m.Index] = true
		found = append(found, suggestion{
			index:    m.Index,
			score:    m.Score,
			distance: titleDistance(query, items[m.Index].Title),
		})
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		return found[i].distance < found[j].distance
	})

	var typos []suggestion
	maxDistance := max(1, len([]rune(query))/4)
	for i, item := range items {
		if seen[i] {
			continue
		}
		if d := titleDistance(query, item.Title); d <= maxDistance {
			typos = append(typos, suggestion{index: i, distance: d})
		}
	}
	sort.SliceStable(typos, func(i, j int) bool {
		return typos[i].distance < typos[j].distance
	})
	found = append(found, typos...)

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	results := make([]domain.CatalogItem, len(found))
	for i, s := range found {
		results[i] = items[s.index]
	}
	return results
}

func titleDistance(query, title string) int {
	return fuzzy.LevenshteinDistance(query, strings.ToLower(title))
}
