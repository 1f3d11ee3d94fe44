package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/domespa/digital-store-happykids-sub002/internal/catalog"
	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
	apperrors "github.com/domespa/digital-store-happykids-sub002/pkg/errors"
)

// Store is an in-memory implementation of the catalog.Store interface.
// It evaluates the same predicate semantics as the PostgreSQL store over
// seeded rows, which makes it the backing store for engine tests and
// local development. Thread-safe via sync.RWMutex.
type Store struct {
	mu         sync.RWMutex
	products   map[string]domain.Product
	categories map[string]domain.Category
	variants   map[string]int
}

// New creates an empty in-memory catalog store.
func New() *Store {
	return &Store{
		products:   make(map[string]domain.Product),
		categories: make(map[string]domain.Category),
		variants:   make(map[string]int),
	}
}

// Put adds or replaces products. The Category reference of each product is
// resolved from seeded categories when only CategoryID is set.
func (s *Store) Put(products ...domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		if p.Category == nil && p.CategoryID != nil {
			if c, ok := s.categories[*p.CategoryID]; ok {
				cat := c
				p.Category = &cat
			}
		}
		s.products[p.ID] = p
	}
}

// PutCategories adds or replaces categories.
func (s *Store) PutCategories(categories ...domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range categories {
		s.categories[c.ID] = c
	}
}

// SetVariantCount records how many variants a product has.
func (s *Store) SetVariantCount(productID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[productID] = n
}

// FindProducts returns the matching rows, ordered and paginated.
func (s *Store) FindProducts(_ context.Context, pred catalog.Predicate, order catalog.Ordering, limit, offset int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filter(pred)
	s.sortProducts(matched, order)

	total := len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]domain.Product, end-offset)
	copy(out, matched[offset:end])
	return out, nil
}

// CountProducts returns the size of the candidate universe.
func (s *Store) CountProducts(_ context.Context, pred catalog.Predicate) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.filter(pred)), nil
}

// GroupByCategory returns matching row counts keyed by category id. Rows
// without a category are skipped.
func (s *Store) GroupByCategory(_ context.Context, pred catalog.Predicate) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, p := range s.filter(pred) {
		if p.CategoryID == nil {
			continue
		}
		counts[*p.CategoryID]++
	}
	return counts, nil
}

// CategoriesByID resolves category ids; unknown ids are omitted.
func (s *Store) CategoriesByID(_ context.Context, ids []string) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.categories[id]; ok {
			categories = append(categories, c)
		}
	}
	return categories, nil
}

// CategoryBySlug resolves a category slug.
func (s *Store) CategoryBySlug(_ context.Context, slug string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.Slug == slug {
			out := c
			return &out, nil
		}
	}
	return nil, apperrors.NotFoundBy("category", "slug", slug)
}

// PriceStats returns min/max price and row count over the candidate set.
func (s *Store) PriceStats(_ context.Context, pred catalog.Predicate) (catalog.PriceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats catalog.PriceStats
	for _, p := range s.filter(pred) {
		if stats.Count == 0 || p.Price < stats.Min {
			stats.Min = p.Price
		}
		if stats.Count == 0 || p.Price > stats.Max {
			stats.Max = p.Price
		}
		stats.Count++
	}
	return stats, nil
}

// PriceHistogram buckets matching rows by (price-min)/step clamped to [0,4].
func (s *Store) PriceHistogram(_ context.Context, pred catalog.Predicate, min, step int64) (map[int]int, error) {
	if step < 1 {
		step = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make(map[int]int)
	for _, p := range s.filter(pred) {
		bucket := int((p.Price - min) / step)
		if bucket < 0 {
			bucket = 0
		}
		if bucket > 4 {
			bucket = 4
		}
		buckets[bucket]++
	}
	return buckets, nil
}

// RatingHistogram groups matching rows by floor(avg_rating), ratings > 0 only.
func (s *Store) RatingHistogram(_ context.Context, pred catalog.Predicate) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := make(map[int]int)
	for _, p := range s.filter(pred) {
		if p.AvgRating <= 0 {
			continue
		}
		hist[int(math.Floor(p.AvgRating))]++
	}
	return hist, nil
}

// ProductByID returns one product by id.
func (s *Store) ProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

// SuggestProducts returns product-name substring matches, featured first
// then by review count.
func (s *Store) SuggestProducts(_ context.Context, term string, limit int) ([]domain.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	termLower := strings.ToLower(term)
	matched := make([]domain.Product, 0)
	for _, p := range s.products {
		if p.IsActive && strings.Contains(strings.ToLower(p.Name), termLower) {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].IsFeatured != matched[j].IsFeatured {
			return matched[i].IsFeatured
		}
		return matched[i].ReviewCount > matched[j].ReviewCount
	})

	suggestions := make([]domain.Suggestion, 0, limit)
	for _, p := range matched {
		if len(suggestions) >= limit {
			break
		}
		suggestions = append(suggestions, domain.Suggestion{
			Type: domain.SuggestionProduct,
			ID:   p.ID,
			Name: p.Name,
			Slug: p.Slug,
		})
	}
	return suggestions, nil
}

// SuggestCategories returns category-name substring matches ordered by
// product count.
func (s *Store) SuggestCategories(_ context.Context, term string, limit int) ([]domain.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	termLower := strings.ToLower(term)
	matched := make([]domain.Category, 0)
	for _, c := range s.categories {
		if strings.Contains(strings.ToLower(c.Name), termLower) {
			matched = append(matched, c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ProductCount > matched[j].ProductCount
	})

	suggestions := make([]domain.Suggestion, 0, limit)
	for _, c := range matched {
		if len(suggestions) >= limit {
			break
		}
		suggestions = append(suggestions, domain.Suggestion{
			Type: domain.SuggestionCategory,
			ID:   c.ID,
			Name: c.Name,
			Slug: c.Slug,
		})
	}
	return suggestions, nil
}

// filter returns the products matching every clause of the predicate, in
// stable id order so sorting ties resolve deterministically.
func (s *Store) filter(pred catalog.Predicate) []domain.Product {
	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	matched := make([]domain.Product, 0)
	for _, id := range ids {
		p := s.products[id]
		if s.matchesAll(p, pred.Clauses) {
			matched = append(matched, p)
		}
	}
	return matched
}

func (s *Store) matchesAll(p domain.Product, clauses []catalog.Clause) bool {
	for _, c := range clauses {
		if !s.matches(p, c) {
			return false
		}
	}
	return true
}

func (s *Store) matches(p domain.Product, clause catalog.Clause) bool {
	switch c := clause.(type) {
	case catalog.ContainsAny:
		termLower := strings.ToLower(c.Term)
		for _, f := range c.Fields {
			if strings.Contains(strings.ToLower(textValue(p, f)), termLower) {
				return true
			}
		}
		return false

	case catalog.IntAtLeast:
		return intValue(p, c.Field) >= c.Value

	case catalog.IntAtMost:
		return intValue(p, c.Field) <= c.Value

	case catalog.RatingAtLeast:
		return p.AvgRating >= c.Value

	case catalog.FlagIs:
		return flagValue(p, c.Field) == c.Value

	case catalog.CategoryIDIs:
		return p.CategoryID != nil && *p.CategoryID == c.ID

	case catalog.CategorySlugIs:
		return p.Category != nil && p.Category.Slug == c.Slug

	case catalog.CreatedAfter:
		return !p.CreatedAt.Before(c.At)

	case catalog.CreatedBefore:
		return !p.CreatedAt.After(c.At)

	case catalog.TaggedAnySlug:
		for _, t := range p.Tags {
			for _, slug := range c.Slugs {
				if t.Slug == slug {
					return true
				}
			}
		}
		return false

	case catalog.TaggedAnyID:
		for _, t := range p.Tags {
			for _, id := range c.IDs {
				if t.ID == id {
					return true
				}
			}
		}
		return false

	case catalog.HasRelated:
		if c.Rel == catalog.RelVariants {
			return s.variants[p.ID] > 0
		}
		return len(p.Images) > 0

	case catalog.HasOriginalPrice:
		return p.OriginalPrice != nil

	case catalog.NotID:
		return p.ID != c.ID

	case catalog.AnyOf:
		for _, inner := range c.Clauses {
			if s.matches(p, inner) {
				return true
			}
		}
		return false

	case catalog.AllOf:
		return s.matchesAll(p, c.Clauses)

	default:
		return false
	}
}

func textValue(p domain.Product, f catalog.TextField) string {
	switch f {
	case catalog.TextName:
		return p.Name
	case catalog.TextDescription:
		return p.Description
	case catalog.TextShortDescription:
		return p.ShortDescription
	case catalog.TextCategoryName:
		if p.Category != nil {
			return p.Category.Name
		}
		return ""
	default:
		return ""
	}
}

func intValue(p domain.Product, f catalog.IntField) int64 {
	switch f {
	case catalog.IntPrice:
		return p.Price
	case catalog.IntStock:
		return int64(p.Stock)
	case catalog.IntReviewCount:
		return int64(p.ReviewCount)
	case catalog.IntWishlistCount:
		return int64(p.WishlistCount)
	case catalog.IntViewCount:
		return int64(p.ViewCount)
	default:
		return 0
	}
}

func flagValue(p domain.Product, f catalog.FlagField) bool {
	switch f {
	case catalog.FlagDigital:
		return p.IsDigital
	case catalog.FlagFeatured:
		return p.IsFeatured
	case catalog.FlagActive:
		return p.IsActive
	case catalog.FlagTrackInventory:
		return p.TrackInventory
	default:
		return false
	}
}

// sortProducts applies a multi-key ordering in place. An empty ordering
// sorts newest-first like the SQL store.
func (s *Store) sortProducts(products []domain.Product, order catalog.Ordering) {
	if len(order) == 0 {
		order = catalog.Ordering{{Field: catalog.OrderCreatedAt, Desc: true}}
	}
	sort.SliceStable(products, func(i, j int) bool {
		for _, k := range order {
			c := compareKey(products[i], products[j], k.Field)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareKey(a, b domain.Product, f catalog.OrderField) int {
	switch f {
	case catalog.OrderPrice:
		return compareInt64(a.Price, b.Price)
	case catalog.OrderName:
		return strings.Compare(a.Name, b.Name)
	case catalog.OrderRating:
		return compareFloat(a.AvgRating, b.AvgRating)
	case catalog.OrderReviewCount:
		return compareInt64(int64(a.ReviewCount), int64(b.ReviewCount))
	case catalog.OrderCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case catalog.OrderFeatured:
		return compareBool(a.IsFeatured, b.IsFeatured)
	case catalog.OrderWishlistCount:
		return compareInt64(int64(a.WishlistCount), int64(b.WishlistCount))
	case catalog.OrderViewCount:
		return compareInt64(int64(a.ViewCount), int64(b.ViewCount))
	case catalog.OrderOriginalPriceSet:
		return compareBool(a.OriginalPrice != nil, b.OriginalPrice != nil)
	case catalog.OrderOriginalPrice:
		// A missing original price sorts after any set one.
		switch {
		case a.OriginalPrice == nil && b.OriginalPrice == nil:
			return 0
		case a.OriginalPrice == nil:
			return -1
		case b.OriginalPrice == nil:
			return 1
		default:
			return compareInt64(*a.OriginalPrice, *b.OriginalPrice)
		}
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}
