// Package retrieval assembles answer context for a query: it overlays
// team corrections on vector search results, orders everything by source
// authority, and renders the context block and citation list handed to
// the language model layer.
package retrieval

import (
	"sort"

	"github.com/logic25/beacon-sub000/internal/corrections"
	"github.com/logic25/beacon-sub000/internal/doctype"
	"github.com/logic25/beacon-sub000/internal/index"
)

// Item is one ranked unit: either a correction or a search result.
// Exactly one of Correction and Result is set.
type Item struct {
	Correction *corrections.Entry
	Result     *index.SearchResult
	Tier       int
	Score      float64
}

// Rank merges corrections and search results into one list ordered by
// authority tier, then score. Corrections enter at the highest tier with
// a full score, ahead of the results, and the sort is stable, so they
// stay at the front in store order and equally-ranked results keep their
// original relative order.
func Rank(matched []corrections.Entry, results []index.SearchResult) []Item {
	items := make([]Item, 0, len(matched)+len(results))
	for i := range matched {
		items = append(items, Item{
			Correction: &matched[i],
			Tier:       doctype.CorrectionTier,
			Score:      1.0,
		})
	}
	for i := range results {
		r := &results[i]
		items = append(items, Item{
			Result: r,
			Tier:   doctype.AuthorityTier(doctype.Type(r.DocType)),
			Score:  r.Score,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Tier != items[j].Tier {
			return items[i].Tier > items[j].Tier
		}
		return items[i].Score > items[j].Score
	})
	return items
}
