package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/domespa/digital-store-happykids-sub002/internal/search"
	"github.com/domespa/digital-store-happykids-sub002/pkg/health"
	"github.com/domespa/digital-store-happykids-sub002/pkg/middleware"
)

// listingCacheSeconds is the browser cache window for the popular and
// featured listings, which tolerate staleness.
const listingCacheSeconds = 300

// NewRouter creates a chi router with all search routes registered.
func NewRouter(
	searchService *search.Service,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Tracing("search"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("search"))
	r.Use(ClientContext)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	searchHandler := NewSearchHandler(searchService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/search", func(r chi.Router) {
			r.Get("/", searchHandler.Search)
			r.Get("/quick", searchHandler.QuickSearch)
			r.Get("/suggest", searchHandler.Autocomplete)
			r.Get("/on-sale", searchHandler.OnSale)
			r.Get("/category/{slug}", searchHandler.ByCategory)
			r.Post("/advanced", searchHandler.AdvancedSearch)

			r.Group(func(r chi.Router) {
				r.Use(middleware.CacheControl(listingCacheSeconds))
				r.Get("/popular", searchHandler.Popular)
				r.Get("/featured", searchHandler.Featured)
			})
		})

		r.Get("/products/{id}/similar", searchHandler.Similar)
	})

	return r
}
