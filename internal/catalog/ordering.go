package catalog

import (
	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
)

// OrderField identifies a sortable attribute of catalog rows.
type OrderField string

const (
	OrderPrice         OrderField = "price"
	OrderName          OrderField = "name"
	OrderRating        OrderField = "avg_rating"
	OrderReviewCount   OrderField = "review_count"
	OrderCreatedAt     OrderField = "created_at"
	OrderFeatured      OrderField = "is_featured"
	OrderWishlistCount OrderField = "wishlist_count"
	OrderViewCount     OrderField = "view_count"

	// OrderOriginalPriceSet sorts discount-eligible products (non-null
	// original price) ahead of the rest; OrderOriginalPrice then sorts by
	// the original price itself. Together they implement the documented
	// discount ordering, which ranks by discount eligibility and original
	// price rather than by actual discount magnitude.
	OrderOriginalPriceSet OrderField = "original_price_set"
	OrderOriginalPrice    OrderField = "original_price"
)

// OrderKey is one key of a multi-key ordering.
type OrderKey struct {
	Field OrderField
	Desc  bool
}

// Ordering is an ordered list of sort keys, most significant first.
type Ordering []OrderKey

// defaultDesc reports whether a sort field descends when no explicit
// direction was requested. Name and price read naturally ascending;
// everything else ranks best-first.
func defaultDesc(sortBy string) bool {
	switch sortBy {
	case domain.SortName, domain.SortPrice:
		return false
	default:
		return true
	}
}

// BuildOrdering translates the requested sort field and direction, plus
// whether a free-text query is present, into a concrete multi-key
// ordering. It is a pure function; unknown sort fields fall back to
// newest-first.
func BuildOrdering(sortBy, sortOrder string, hasQuery bool) Ordering {
	desc := defaultDesc(sortBy)
	switch sortOrder {
	case domain.OrderAsc:
		desc = false
	case domain.OrderDesc:
		desc = true
	}

	switch sortBy {
	case domain.SortRelevance:
		if hasQuery {
			return Ordering{
				{Field: OrderFeatured, Desc: true},
				{Field: OrderRating, Desc: true},
				{Field: OrderReviewCount, Desc: true},
				{Field: OrderCreatedAt, Desc: true},
			}
		}
		return Ordering{
			{Field: OrderFeatured, Desc: true},
			{Field: OrderWishlistCount, Desc: true},
			{Field: OrderViewCount, Desc: true},
		}

	case domain.SortPrice:
		return Ordering{{Field: OrderPrice, Desc: desc}}

	case domain.SortReviews:
		return Ordering{{Field: OrderReviewCount, Desc: desc}}

	case domain.SortCreatedAt:
		return Ordering{{Field: OrderCreatedAt, Desc: desc}}

	case domain.SortName:
		return Ordering{{Field: OrderName, Desc: desc}}

	case domain.SortRating:
		return Ordering{
			{Field: OrderRating, Desc: desc},
			{Field: OrderReviewCount, Desc: true},
		}

	case domain.SortPopularity:
		return Ordering{
			{Field: OrderWishlistCount, Desc: desc},
			{Field: OrderViewCount, Desc: desc},
			{Field: OrderReviewCount, Desc: true},
		}

	case domain.SortDiscount:
		return Ordering{
			{Field: OrderOriginalPriceSet, Desc: true},
			{Field: OrderOriginalPrice, Desc: true},
		}

	default:
		return Ordering{{Field: OrderCreatedAt, Desc: true}}
	}
}

// SimilarOrdering ranks similar-product candidates by popularity signals.
func SimilarOrdering() Ordering {
	return Ordering{
		{Field: OrderRating, Desc: true},
		{Field: OrderReviewCount, Desc: true},
		{Field: OrderWishlistCount, Desc: true},
	}
}
