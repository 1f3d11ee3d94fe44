package search

import (
	"github.com/domespa/digital-store-happykids-sub002/internal/catalog"
	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
)

// similarPredicate selects active products related to the reference by
// shared category, shared tag, or a price within half to one-and-a-half
// times the reference price. The reference itself is always excluded.
func similarPredicate(ref *domain.Product) catalog.Predicate {
	var reasons []catalog.Clause

	if ref.CategoryID != nil {
		reasons = append(reasons, catalog.CategoryIDIs{ID: *ref.CategoryID})
	}
	if len(ref.Tags) > 0 {
		ids := make([]string, len(ref.Tags))
		for i, t := range ref.Tags {
			ids[i] = t.ID
		}
		reasons = append(reasons, catalog.TaggedAnyID{IDs: ids})
	}
	reasons = append(reasons, catalog.AllOf{Clauses: []catalog.Clause{
		catalog.IntAtLeast{Field: catalog.IntPrice, Value: ref.Price / 2},
		catalog.IntAtMost{Field: catalog.IntPrice, Value: ref.Price * 3 / 2},
	}})

	return catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
		catalog.NotID{ID: ref.ID},
		catalog.AnyOf{Clauses: reasons},
	}}
}
