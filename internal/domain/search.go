package domain

import (
	"time"
)

// Sort options for search results.
const (
	SortRelevance  = "relevance"
	SortPrice      = "price"
	SortRating     = "rating"
	SortReviews    = "reviews"
	SortCreatedAt  = "createdAt"
	SortName       = "name"
	SortPopularity = "popularity"
	SortDiscount   = "discount"
)

// Sort directions.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Pagination and filter bounds.
const (
	DefaultPage        = 1
	DefaultLimit       = 20
	MaxLimit           = 100
	MaxTags            = 20
	DefaultSimilar     = 6
	DefaultSuggestions = 8

	// LowResultThreshold triggers the degraded-query suggestion when a
	// query was supplied and fewer results than this were found.
	LowResultThreshold = 5
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{
		SortRelevance, SortPrice, SortRating, SortReviews,
		SortCreatedAt, SortName, SortPopularity, SortDiscount,
	}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	for _, s := range ValidSortOptions() {
		if s == sort {
			return true
		}
	}
	return false
}

// SearchFilters holds all validated parameters for a product search.
// Pointer fields are unset when nil; Page and Limit always carry a usable
// value after Normalize.
type SearchFilters struct {
	Query          string     `json:"query,omitempty"`
	CategoryID     *string    `json:"category_id,omitempty"`
	CategorySlug   *string    `json:"category_slug,omitempty"`
	MinPrice       *int64     `json:"min_price,omitempty"`
	MaxPrice       *int64     `json:"max_price,omitempty"`
	MinRating      *float64   `json:"min_rating,omitempty"`
	InStock        *bool      `json:"in_stock,omitempty"`
	IsDigital      *bool      `json:"is_digital,omitempty"`
	IsFeatured     *bool      `json:"is_featured,omitempty"`
	HasReviews     *bool      `json:"has_reviews,omitempty"`
	HasImages      *bool      `json:"has_images,omitempty"`
	HasVariants    *bool      `json:"has_variants,omitempty"`
	TrackInventory *bool      `json:"track_inventory,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
	MinReviews     *int       `json:"min_reviews,omitempty"`
	OnSale         *bool      `json:"on_sale,omitempty"`
	Page           int        `json:"page"`
	Limit          int        `json:"limit"`
	SortBy         string     `json:"sort_by,omitempty"`
	SortOrder      string     `json:"sort_order,omitempty"`
	CreatedAfter   *time.Time `json:"created_after,omitempty"`
	CreatedBefore  *time.Time `json:"created_before,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
}

// MatchedField values reported by the relevance scorer.
const (
	MatchedFieldTitle       = "title"
	MatchedFieldDescription = "description"
)

// SearchResult is a product projection annotated with search-derived fields.
type SearchResult struct {
	Product
	DiscountPct    *int     `json:"discount_percentage,omitempty"`
	RelevanceScore int      `json:"relevance_score"`
	MatchedFields  []string `json:"matched_fields,omitempty"`
}

// Pagination describes the page window of a search response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the pagination block for a result window.
func NewPagination(page, limit, total int) Pagination {
	totalPages := total / limit
	if total%limit > 0 {
		totalPages++
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Suggestion source types.
const (
	SuggestionProduct  = "product"
	SuggestionCategory = "category"
	SuggestionQuery    = "query"
)

// Suggestion is an autocomplete or degraded-query entry.
type Suggestion struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// CategoryFacet is a per-category result count.
type CategoryFacet struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// PriceRangeFacet is one of the five dynamically derived price buckets.
type PriceRangeFacet struct {
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
	Count int   `json:"count"`
}

// AvailabilityFacet summarizes stock availability over the candidate set.
type AvailabilityFacet struct {
	InStock    int `json:"in_stock"`
	OutOfStock int `json:"out_of_stock"`
}

// ProductTypeFacet summarizes digital vs physical products.
type ProductTypeFacet struct {
	Digital  int `json:"digital"`
	Physical int `json:"physical"`
}

// SearchFacets carries aggregate counts computed against the same candidate
// universe as the primary result set.
type SearchFacets struct {
	Categories   []CategoryFacet   `json:"categories"`
	PriceRanges  []PriceRangeFacet `json:"price_ranges"`
	Ratings      map[int]int       `json:"ratings"`
	Availability AvailabilityFacet `json:"availability"`
	ProductTypes ProductTypeFacet  `json:"product_types"`
}

// SearchResponse is the full envelope returned by a product search.
// Constructed fresh per call and immutable once returned.
type SearchResponse struct {
	Results      []SearchResult `json:"results"`
	Pagination   Pagination     `json:"pagination"`
	Filters      SearchFilters  `json:"filters"`
	Facets       SearchFacets   `json:"facets"`
	Suggestions  []Suggestion   `json:"suggestions,omitempty"`
	SearchTimeMs int64          `json:"search_time_ms"`
	TotalCount   int            `json:"total_count"`
}
