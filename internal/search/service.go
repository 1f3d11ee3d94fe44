package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/domespa/digital-store-happykids-sub002/internal/analytics"
	"github.com/domespa/digital-store-happykids-sub002/internal/catalog"
	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
	apperrors "github.com/domespa/digital-store-happykids-sub002/pkg/errors"
	"github.com/domespa/digital-store-happykids-sub002/pkg/logger"
)

// minQueryLength is the shortest free-text query quick search and
// autocomplete act on.
const minQueryLength = 2

// analyticsTimeout bounds the detached analytics emission goroutine.
const analyticsTimeout = 5 * time.Second

// AnalyticsEmitter is the fire-and-forget analytics capability consumed by
// the engine, satisfied by *analytics.Producer.
type AnalyticsEmitter interface {
	SearchPerformed(ctx context.Context, data analytics.SearchPerformedData) error
}

// Service orchestrates search operations over an injected catalog store.
// It holds no mutable state of its own; every response is assembled fresh
// per call.
type Service struct {
	store     catalog.Store
	cache     *redis.Client
	cacheTTL  time.Duration
	analytics AnalyticsEmitter
	logger    *slog.Logger
}

// New creates a search service over a catalog store. Caching and analytics
// are disabled until wired via WithCache/WithAnalytics.
func New(store catalog.Store, log *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
	}
}

// WithCache returns a copy of the service with Redis caching enabled for
// autocomplete and popular listings.
func (s *Service) WithCache(client *redis.Client, ttl time.Duration) *Service {
	cpy := *s
	cpy.cache = client
	cpy.cacheTTL = ttl
	return &cpy
}

// WithAnalytics returns a copy of the service with search event emission
// enabled.
func (s *Service) WithAnalytics(emitter AnalyticsEmitter) *Service {
	cpy := *s
	cpy.analytics = emitter
	return &cpy
}

// Search runs a full product search: the primary fetch, the total count,
// and the facet aggregation run concurrently against one predicate, then
// results are scored and the response assembled. A search carrying a
// free-text query also emits one best-effort analytics observation.
func (s *Service) Search(ctx context.Context, f *domain.SearchFilters) (resp *domain.SearchResponse, err error) {
	start := time.Now()
	defer func() { observeOperation("search", start, err) }()

	return s.search(ctx, f)
}

// search is the unobserved core shared by every operation that delegates
// here, so each request is counted once under its outermost operation.
func (s *Service) search(ctx context.Context, f *domain.SearchFilters) (resp *domain.SearchResponse, err error) {
	start := time.Now()

	Normalize(f)
	if err = ValidateFilters(f); err != nil {
		return nil, err
	}

	pred := catalog.BuildPredicate(f)
	order := catalog.BuildOrdering(f.SortBy, f.SortOrder, f.Query != "")
	offset := (f.Page - 1) * f.Limit

	var (
		products []domain.Product
		total    int
		facets   domain.SearchFacets
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.store.FindProducts(gctx, pred, order, f.Limit, offset)
		if err != nil {
			return fmt.Errorf("fetch products: %w", err)
		}
		products = found
		return nil
	})
	g.Go(func() error {
		count, err := s.store.CountProducts(gctx, pred)
		if err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		total = count
		return nil
	})
	g.Go(func() error {
		built, err := s.buildFacets(gctx, pred)
		if err != nil {
			return err
		}
		facets = built
		return nil
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	results := annotateResults(products, f.Query)
	searchResultCount.Observe(float64(len(results)))

	// Suggestions are auxiliary: a failure degrades the response, it does
	// not fail it.
	var suggestions []domain.Suggestion
	if f.Query != "" && total < domain.LowResultThreshold {
		suggestions, err = s.buildSuggestions(ctx, f.Query, domain.DefaultSuggestions)
		if err != nil {
			s.logger.WarnContext(ctx, "suggestion generation failed", slog.String("error", err.Error()))
			suggestions = nil
			err = nil
		}
		if d := degradedSuggestion(f.Query); d != nil {
			suggestions = append(suggestions, *d)
		}
	}

	searchTime := time.Since(start).Milliseconds()

	if f.Query != "" {
		s.emitSearchEvent(ctx, f, total, searchTime)
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", f.Query),
		slog.Int("total", total),
		slog.Int("returned", len(results)),
		slog.Int64("took_ms", searchTime),
	)

	return &domain.SearchResponse{
		Results:      results,
		Pagination:   domain.NewPagination(f.Page, f.Limit, total),
		Filters:      *f,
		Facets:       facets,
		Suggestions:  suggestions,
		SearchTimeMs: searchTime,
		TotalCount:   total,
	}, nil
}

// QuickSearch runs a relevance-ranked free-text search. Queries shorter
// than two characters are rejected.
func (s *Service) QuickSearch(ctx context.Context, query string, limit int) (resp *domain.SearchResponse, err error) {
	start := time.Now()
	defer func() { observeOperation("quick_search", start, err) }()

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLength {
		return nil, apperrors.InvalidField("query", "must be at least 2 characters")
	}

	return s.search(ctx, &domain.SearchFilters{
		Query:  query,
		Limit:  limit,
		SortBy: domain.SortRelevance,
	})
}

// SearchByCategory resolves a category slug and searches within it. An
// unresolved slug is a not-found failure.
func (s *Service) SearchByCategory(ctx context.Context, slug string, f *domain.SearchFilters) (resp *domain.SearchResponse, err error) {
	start := time.Now()
	defer func() { observeOperation("category_search", start, err) }()

	category, err := s.store.CategoryBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	f.CategoryID = &category.ID
	f.CategorySlug = nil
	return s.search(ctx, f)
}

// FindSimilar returns products related to the reference by category, tags,
// or price band, popularity-ranked. The reference product never appears in
// the result set.
func (s *Service) FindSimilar(ctx context.Context, productID string, limit int) (results []domain.SearchResult, err error) {
	start := time.Now()
	defer func() { observeOperation("similar", start, err) }()

	if limit < 1 {
		limit = domain.DefaultSimilar
	}
	if limit > domain.MaxLimit {
		limit = domain.MaxLimit
	}

	ref, err := s.store.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	products, err := s.store.FindProducts(ctx, similarPredicate(ref), catalog.SimilarOrdering(), limit, 0)
	if err != nil {
		return nil, fmt.Errorf("find similar products: %w", err)
	}
	return annotateResults(products, ""), nil
}

// PopularProducts lists the most wished-for products, optionally scoped to
// a category, served from cache when one is configured.
func (s *Service) PopularProducts(ctx context.Context, categorySlug string, limit int) (results []domain.SearchResult, err error) {
	start := time.Now()
	defer func() { observeOperation("popular", start, err) }()

	if limit < 1 {
		limit = domain.DefaultLimit
	}
	if limit > domain.MaxLimit {
		limit = domain.MaxLimit
	}

	key := fmt.Sprintf("search:popular:%s:%d", categorySlug, limit)
	if s.cacheGet(ctx, "popular", key, &results) {
		return results, nil
	}

	clauses := []catalog.Clause{catalog.FlagIs{Field: catalog.FlagActive, Value: true}}
	if categorySlug != "" {
		clauses = append(clauses, catalog.CategorySlugIs{Slug: categorySlug})
	}

	order := catalog.BuildOrdering(domain.SortPopularity, domain.OrderDesc, false)
	products, err := s.store.FindProducts(ctx, catalog.Predicate{Clauses: clauses}, order, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("popular products: %w", err)
	}

	results = annotateResults(products, "")
	s.cacheSet(ctx, key, results)
	return results, nil
}

// FeaturedProducts lists featured products ranked by popularity signals.
func (s *Service) FeaturedProducts(ctx context.Context, limit int) (results []domain.SearchResult, err error) {
	start := time.Now()
	defer func() { observeOperation("featured", start, err) }()

	if limit < 1 {
		limit = domain.DefaultLimit
	}
	if limit > domain.MaxLimit {
		limit = domain.MaxLimit
	}

	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
		catalog.FlagIs{Field: catalog.FlagFeatured, Value: true},
	}}
	order := catalog.BuildOrdering(domain.SortPopularity, domain.OrderDesc, false)

	products, err := s.store.FindProducts(ctx, pred, order, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}
	return annotateResults(products, ""), nil
}

// OnSaleProducts searches products carrying an original price, ranked by
// discount ordering unless the caller requested another sort.
func (s *Service) OnSaleProducts(ctx context.Context, f *domain.SearchFilters) (resp *domain.SearchResponse, err error) {
	start := time.Now()
	defer func() { observeOperation("on_sale", start, err) }()

	onSale := true
	f.OnSale = &onSale
	if f.SortBy == "" {
		f.SortBy = domain.SortDiscount
	}
	return s.search(ctx, f)
}

// Autocomplete returns merged product and category suggestions for a
// partial query. Queries shorter than two characters return an empty list
// without touching the store.
func (s *Service) Autocomplete(ctx context.Context, query string, limit int) (suggestions []domain.Suggestion, err error) {
	start := time.Now()
	defer func() { observeOperation("autocomplete", start, err) }()

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLength {
		return []domain.Suggestion{}, nil
	}
	if limit < 1 {
		limit = domain.DefaultSuggestions
	}

	key := fmt.Sprintf("search:autocomplete:%s:%d", strings.ToLower(query), limit)
	if s.cacheGet(ctx, "autocomplete", key, &suggestions) {
		return suggestions, nil
	}

	suggestions, err = s.buildSuggestions(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, suggestions)
	return suggestions, nil
}

// AdvancedSearch validates the filter set strictly before any catalog call
// and then runs a standard search.
func (s *Service) AdvancedSearch(ctx context.Context, f *domain.SearchFilters) (resp *domain.SearchResponse, err error) {
	start := time.Now()
	defer func() { observeOperation("advanced_search", start, err) }()

	if err := ValidateFilters(f); err != nil {
		return nil, err
	}
	return s.search(ctx, f)
}

// emitSearchEvent dispatches one analytics observation on a detached
// goroutine so a collaborator outage can never block or fail the search.
func (s *Service) emitSearchEvent(ctx context.Context, f *domain.SearchFilters, total int, durationMs int64) {
	if s.analytics == nil {
		return
	}

	info := analytics.ClientInfoFromContext(ctx)
	correlationID := logger.CorrelationIDFromContext(ctx)
	filters := *f

	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), analyticsTimeout)
		defer cancel()
		if correlationID != "" {
			emitCtx = logger.WithCorrelationID(emitCtx, correlationID)
		}

		data := analytics.SearchPerformedData{
			Query:       filters.Query,
			UserID:      info.UserID,
			ClientIP:    info.IP,
			UserAgent:   info.UserAgent,
			ResultCount: total,
			DurationMs:  durationMs,
			Filters:     filters,
		}
		if err := s.analytics.SearchPerformed(emitCtx, data); err != nil {
			s.logger.Warn("search analytics emission failed",
				slog.String("query", filters.Query),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// cacheGet loads a cached value into v, reporting whether it was a hit.
// Cache failures are treated as misses.
func (s *Service) cacheGet(ctx context.Context, listing, key string, v any) bool {
	if s.cache == nil {
		return false
	}

	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		searchCacheHits.WithLabelValues(listing, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		searchCacheHits.WithLabelValues(listing, "miss").Inc()
		return false
	}
	searchCacheHits.WithLabelValues(listing, "hit").Inc()
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
