package catalog

import (
	"context"

	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
)

// PriceStats holds aggregate price statistics over a candidate set.
type PriceStats struct {
	Min   int64
	Max   int64
	Count int
}

// Store is the read-only catalog query capability the search engine is
// built against. Implementations must apply the same predicate semantics
// so that results, counts, and facets always describe the same candidate
// universe. The engine performs no catalog mutation through this interface.
type Store interface {
	// FindProducts returns the rows matching the predicate, ordered and
	// paginated. Category references are resolved; images and tags are
	// attached to each returned row.
	FindProducts(ctx context.Context, pred Predicate, order Ordering, limit, offset int) ([]domain.Product, error)

	// CountProducts returns the size of the candidate universe.
	CountProducts(ctx context.Context, pred Predicate) (int, error)

	// GroupByCategory returns matching row counts keyed by category id.
	// Rows without a category are not counted.
	GroupByCategory(ctx context.Context, pred Predicate) (map[string]int, error)

	// CategoriesByID resolves category ids to their current name and slug.
	// Ids that no longer resolve are omitted.
	CategoriesByID(ctx context.Context, ids []string) ([]domain.Category, error)

	// CategoryBySlug resolves a category slug, or returns a not-found error.
	CategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)

	// PriceStats returns min/max price and row count over the candidate set.
	PriceStats(ctx context.Context, pred Predicate) (PriceStats, error)

	// PriceHistogram buckets matching rows by (price-min)/step, clamping
	// the bucket index to [0,4] so the last bucket absorbs the remainder.
	PriceHistogram(ctx context.Context, pred Predicate, min, step int64) (map[int]int, error)

	// RatingHistogram groups matching rows by floor(avg_rating),
	// restricted to ratings greater than zero.
	RatingHistogram(ctx context.Context, pred Predicate) (map[int]int, error)

	// ProductByID loads one product with category, images, and tags, or
	// returns a not-found error.
	ProductByID(ctx context.Context, id string) (*domain.Product, error)

	// SuggestProducts returns product-name substring matches ordered
	// featured-first then by review count.
	SuggestProducts(ctx context.Context, term string, limit int) ([]domain.Suggestion, error)

	// SuggestCategories returns category-name substring matches ordered by
	// product count.
	SuggestCategories(ctx context.Context, term string, limit int) ([]domain.Suggestion, error)
}
