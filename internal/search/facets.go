package search

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/domespa/digital-store-happykids-sub002/internal/catalog"
	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
)

const priceBucketCount = 5

// buildFacets computes all facet aggregations concurrently against the
// same predicate as the primary fetch, so every count describes the exact
// candidate universe the caller sees.
func (s *Service) buildFacets(ctx context.Context, pred catalog.Predicate) (domain.SearchFacets, error) {
	var facets domain.SearchFacets

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		categories, err := s.categoryFacets(ctx, pred)
		if err != nil {
			return err
		}
		facets.Categories = categories
		return nil
	})

	g.Go(func() error {
		ranges, err := s.priceRangeFacets(ctx, pred)
		if err != nil {
			return err
		}
		facets.PriceRanges = ranges
		return nil
	})

	g.Go(func() error {
		ratings, err := s.store.RatingHistogram(ctx, pred)
		if err != nil {
			return fmt.Errorf("rating facet: %w", err)
		}
		facets.Ratings = ratings
		return nil
	})

	g.Go(func() error {
		inStock, err := s.store.CountProducts(ctx, pred.And(catalog.IntAtLeast{Field: catalog.IntStock, Value: 1}))
		if err != nil {
			return fmt.Errorf("availability facet: %w", err)
		}
		outOfStock, err := s.store.CountProducts(ctx, pred.And(catalog.IntAtMost{Field: catalog.IntStock, Value: 0}))
		if err != nil {
			return fmt.Errorf("availability facet: %w", err)
		}
		facets.Availability = domain.AvailabilityFacet{InStock: inStock, OutOfStock: outOfStock}
		return nil
	})

	g.Go(func() error {
		digital, err := s.store.CountProducts(ctx, pred.And(catalog.FlagIs{Field: catalog.FlagDigital, Value: true}))
		if err != nil {
			return fmt.Errorf("product type facet: %w", err)
		}
		physical, err := s.store.CountProducts(ctx, pred.And(catalog.FlagIs{Field: catalog.FlagDigital, Value: false}))
		if err != nil {
			return fmt.Errorf("product type facet: %w", err)
		}
		facets.ProductTypes = domain.ProductTypeFacet{Digital: digital, Physical: physical}
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.SearchFacets{}, err
	}
	return facets, nil
}

// categoryFacets groups the candidate set by category, then resolves ids
// to current name/slug. Categories deleted since the grouping are dropped
// rather than reported with stale data.
func (s *Service) categoryFacets(ctx context.Context, pred catalog.Predicate) ([]domain.CategoryFacet, error) {
	counts, err := s.store.GroupByCategory(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("category facet: %w", err)
	}
	if len(counts) == 0 {
		return []domain.CategoryFacet{}, nil
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	categories, err := s.store.CategoriesByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("category facet: %w", err)
	}

	facets := make([]domain.CategoryFacet, 0, len(categories))
	for _, c := range categories {
		facets = append(facets, domain.CategoryFacet{
			ID:    c.ID,
			Name:  c.Name,
			Slug:  c.Slug,
			Count: counts[c.ID],
		})
	}
	sort.Slice(facets, func(i, j int) bool {
		if facets[i].Count != facets[j].Count {
			return facets[i].Count > facets[j].Count
		}
		return facets[i].Name < facets[j].Name
	})
	return facets, nil
}

// priceRangeFacets derives five equal-width buckets spanning the observed
// min..max of the candidate set; the last bucket absorbs the remainder up
// to max exactly.
func (s *Service) priceRangeFacets(ctx context.Context, pred catalog.Predicate) ([]domain.PriceRangeFacet, error) {
	stats, err := s.store.PriceStats(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("price facet: %w", err)
	}
	if stats.Count == 0 {
		return []domain.PriceRangeFacet{}, nil
	}

	step := (stats.Max - stats.Min + priceBucketCount - 1) / priceBucketCount
	if step < 1 {
		step = 1
	}

	histogram, err := s.store.PriceHistogram(ctx, pred, stats.Min, step)
	if err != nil {
		return nil, fmt.Errorf("price facet: %w", err)
	}

	ranges := make([]domain.PriceRangeFacet, priceBucketCount)
	for i := 0; i < priceBucketCount; i++ {
		lo := stats.Min + int64(i)*step
		hi := lo + step
		if i == priceBucketCount-1 {
			hi = stats.Max
		}
		ranges[i] = domain.PriceRangeFacet{Min: lo, Max: hi, Count: histogram[i]}
	}
	return ranges, nil
}
