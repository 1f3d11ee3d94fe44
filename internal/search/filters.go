package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
	apperrors "github.com/domespa/digital-store-happykids-sub002/pkg/errors"
)

// ParseFilters builds a filter set from raw query parameters. This is the
// lenient GET path: values that fail to parse are dropped rather than
// errored, boolean parameters are true only for the literal "true", and
// absence leaves the field unset.
func ParseFilters(values url.Values) *domain.SearchFilters {
	f := &domain.SearchFilters{
		Query:     strings.TrimSpace(firstOf(values, "q", "query")),
		SortBy:    values.Get("sortBy"),
		SortOrder: strings.ToLower(values.Get("sortOrder")),
	}

	if v := values.Get("categoryId"); v != "" {
		f.CategoryID = &v
	}
	if v := values.Get("categorySlug"); v != "" {
		f.CategorySlug = &v
	}

	f.MinPrice = parseInt64(values, "minPrice")
	f.MaxPrice = parseInt64(values, "maxPrice")
	f.MinRating = parseFloat(values, "minRating")
	f.MinReviews = parseInt(values, "minReviews")

	if v := parseInt(values, "page"); v != nil {
		f.Page = *v
	}
	if v := parseInt(values, "limit"); v != nil {
		f.Limit = *v
	}

	f.InStock = parseBool(values, "inStock")
	f.IsDigital = parseBool(values, "isDigital")
	f.IsFeatured = parseBool(values, "isFeatured")
	f.HasReviews = parseBool(values, "hasReviews")
	f.HasImages = parseBool(values, "hasImages")
	f.HasVariants = parseBool(values, "hasVariants")
	f.TrackInventory = parseBool(values, "trackInventory")
	f.IsActive = parseBool(values, "isActive")
	f.OnSale = parseBool(values, "onSale")

	f.CreatedAfter = parseTime(values, "createdAfter")
	f.CreatedBefore = parseTime(values, "createdBefore")

	if v := values.Get("tags"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}

	return f
}

func firstOf(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func parseInt(values url.Values, key string) *int {
	v := values.Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func parseInt64(values url.Values, key string) *int64 {
	v := values.Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloat(values url.Values, key string) *float64 {
	v := values.Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &n
}

// parseBool treats exactly "true" as true; any other present value is
// false, absence is unset.
func parseBool(values url.Values, key string) *bool {
	if !values.Has(key) {
		return nil
	}
	b := values.Get(key) == "true"
	return &b
}

func parseTime(values url.Values, key string) *time.Time {
	v := values.Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

// Normalize clamps out-of-range pagination scalars and applies defaults.
// It never touches semantically invalid combinations; those are rejected
// by ValidateFilters.
func Normalize(f *domain.SearchFilters) {
	if f.Page < 1 {
		f.Page = domain.DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = domain.DefaultLimit
	}
	if f.Limit > domain.MaxLimit {
		f.Limit = domain.MaxLimit
	}
	if f.SortBy == "" {
		f.SortBy = domain.SortRelevance
	}
}

// ValidateFilters enforces the cross-field invariants of a filter set and
// fails fast with a validation error naming the violated field.
func ValidateFilters(f *domain.SearchFilters) error {
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return apperrors.InvalidField("minPrice", "must not be negative")
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return apperrors.InvalidField("maxPrice", "must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return apperrors.InvalidField("minPrice", "must not exceed maxPrice")
	}
	if f.MinRating != nil && (*f.MinRating < 0 || *f.MinRating > 5) {
		return apperrors.InvalidField("minRating", "must be between 0 and 5")
	}
	if f.MinReviews != nil && *f.MinReviews < 0 {
		return apperrors.InvalidField("minReviews", "must not be negative")
	}
	if f.CreatedAfter != nil && f.CreatedBefore != nil && f.CreatedAfter.After(*f.CreatedBefore) {
		return apperrors.InvalidField("createdAfter", "must not be after createdBefore")
	}
	if len(f.Tags) > domain.MaxTags {
		return apperrors.InvalidField("tags", fmt.Sprintf("at most %d tags are allowed", domain.MaxTags))
	}
	// Unknown sortBy/sortOrder values are not rejected; the ordering
	// strategy falls back to newest-first for them.
	return nil
}
