package search

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
	apperrors "github.com/domespa/digital-store-happykids-sub002/pkg/errors"
)

func int64Ptr(n int64) *int64        { return &n }
func intPtr(n int) *int              { return &n }
func floatPtr(f float64) *float64    { return &f }
func boolPtr(b bool) *bool           { return &b }
func timePtr(t time.Time) *time.Time { return &t }

func TestParseFilters_FullParameterSet(t *testing.T) {
	values := url.Values{}
	values.Set("q", "phonics workbook")
	values.Set("categoryId", "cat-1")
	values.Set("minPrice", "1000")
	values.Set("maxPrice", "5000")
	values.Set("minRating", "4.5")
	values.Set("minReviews", "3")
	values.Set("inStock", "true")
	values.Set("isDigital", "true")
	values.Set("page", "2")
	values.Set("limit", "50")
	values.Set("sortBy", "price")
	values.Set("sortOrder", "DESC")
	values.Set("tags", "phonics, math ,, reading")
	values.Set("createdAfter", "2025-01-01T00:00:00Z")

	f := ParseFilters(values)

	assert.Equal(t, "phonics workbook", f.Query)
	require.NotNil(t, f.CategoryID)
	assert.Equal(t, "cat-1", *f.CategoryID)
	assert.Equal(t, int64Ptr(1000), f.MinPrice)
	assert.Equal(t, int64Ptr(5000), f.MaxPrice)
	assert.Equal(t, floatPtr(4.5), f.MinRating)
	assert.Equal(t, intPtr(3), f.MinReviews)
	assert.Equal(t, boolPtr(true), f.InStock)
	assert.Equal(t, boolPtr(true), f.IsDigital)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 50, f.Limit)
	assert.Equal(t, "price", f.SortBy)
	assert.Equal(t, "desc", f.SortOrder)
	assert.Equal(t, []string{"phonics", "math", "reading"}, f.Tags)
	assert.Equal(t, timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), f.CreatedAfter)
}

func TestParseFilters_UnparsableNumericsAreDropped(t *testing.T) {
	values := url.Values{}
	values.Set("minPrice", "cheap")
	values.Set("maxPrice", "12.50")
	values.Set("page", "first")
	values.Set("createdAfter", "yesterday")

	f := ParseFilters(values)

	assert.Nil(t, f.MinPrice)
	assert.Nil(t, f.MaxPrice)
	assert.Zero(t, f.Page)
	assert.Nil(t, f.CreatedAfter)
}

func TestParseFilters_BooleanLiteralTrueOnly(t *testing.T) {
	values := url.Values{}
	values.Set("inStock", "true")
	values.Set("isDigital", "1")
	values.Set("isFeatured", "TRUE")

	f := ParseFilters(values)

	// Exactly "true" is true; any other present value is false; absence
	// leaves the field unset.
	assert.Equal(t, boolPtr(true), f.InStock)
	assert.Equal(t, boolPtr(false), f.IsDigital)
	assert.Equal(t, boolPtr(false), f.IsFeatured)
	assert.Nil(t, f.HasReviews)
}

func TestParseFilters_AcceptsQueryAlias(t *testing.T) {
	values := url.Values{}
	values.Set("query", "flashcards")

	f := ParseFilters(values)
	assert.Equal(t, "flashcards", f.Query)
}

func TestNormalize_ClampsPagination(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"zero values get defaults", 0, 0, 1, 20},
		{"negative page", -3, 10, 1, 10},
		{"limit above cap", 1, 500, 1, 100},
		{"valid values untouched", 4, 25, 4, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &domain.SearchFilters{Page: tt.page, Limit: tt.limit}
			Normalize(f)
			assert.Equal(t, tt.wantPage, f.Page)
			assert.Equal(t, tt.wantLimit, f.Limit)
		})
	}
}

func TestNormalize_DefaultsSortToRelevance(t *testing.T) {
	f := &domain.SearchFilters{}
	Normalize(f)
	assert.Equal(t, domain.SortRelevance, f.SortBy)

	f = &domain.SearchFilters{SortBy: domain.SortPrice}
	Normalize(f)
	assert.Equal(t, domain.SortPrice, f.SortBy)
}

func TestValidateFilters(t *testing.T) {
	after := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	manyTags := make([]string, domain.MaxTags+1)
	for i := range manyTags {
		manyTags[i] = "tag"
	}

	tests := []struct {
		name    string
		filters domain.SearchFilters
		wantErr string
	}{
		{"empty is valid", domain.SearchFilters{}, ""},
		{"negative min price", domain.SearchFilters{MinPrice: int64Ptr(-1)}, "minPrice"},
		{"negative max price", domain.SearchFilters{MaxPrice: int64Ptr(-5)}, "maxPrice"},
		{"min above max", domain.SearchFilters{MinPrice: int64Ptr(50), MaxPrice: int64Ptr(10)}, "minPrice"},
		{"equal bounds are valid", domain.SearchFilters{MinPrice: int64Ptr(10), MaxPrice: int64Ptr(10)}, ""},
		{"rating above five", domain.SearchFilters{MinRating: floatPtr(5.1)}, "minRating"},
		{"negative rating", domain.SearchFilters{MinRating: floatPtr(-0.1)}, "minRating"},
		{"negative min reviews", domain.SearchFilters{MinReviews: intPtr(-1)}, "minReviews"},
		{"after beyond before", domain.SearchFilters{CreatedAfter: &after, CreatedBefore: &before}, "createdAfter"},
		{"too many tags", domain.SearchFilters{Tags: manyTags}, "tags"},
		{"unknown sort passes through", domain.SearchFilters{SortBy: "bogus"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilters(&tt.filters)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
