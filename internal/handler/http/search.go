package http

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/domespa/digital-store-happykids-sub002/internal/analytics"
	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
	"github.com/domespa/digital-store-happykids-sub002/internal/search"
	"github.com/domespa/digital-store-happykids-sub002/pkg/httputil"
	"github.com/domespa/digital-store-happykids-sub002/pkg/middleware"
	"github.com/domespa/digital-store-happykids-sub002/pkg/validator"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *search.Service
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *search.Service, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AdvancedSearchRequest is the JSON request body for advanced search.
// Pointer fields are optional; absent fields leave the filter unset.
type AdvancedSearchRequest struct {
	Query          string     `json:"query"`
	CategoryID     *string    `json:"category_id"`
	CategorySlug   *string    `json:"category_slug"`
	MinPrice       *int64     `json:"min_price" validate:"omitempty,min=0"`
	MaxPrice       *int64     `json:"max_price" validate:"omitempty,min=0"`
	MinRating      *float64   `json:"min_rating" validate:"omitempty,min=0,max=5"`
	MinReviews     *int       `json:"min_reviews" validate:"omitempty,min=0"`
	InStock        *bool      `json:"in_stock"`
	IsDigital      *bool      `json:"is_digital"`
	IsFeatured     *bool      `json:"is_featured"`
	HasReviews     *bool      `json:"has_reviews"`
	HasImages      *bool      `json:"has_images"`
	HasVariants    *bool      `json:"has_variants"`
	TrackInventory *bool      `json:"track_inventory"`
	IsActive       *bool      `json:"is_active"`
	OnSale         *bool      `json:"on_sale"`
	Page           int        `json:"page" validate:"omitempty,min=1"`
	Limit          int        `json:"limit" validate:"omitempty,min=1,max=100"`
	SortBy         string     `json:"sort_by"`
	SortOrder      string     `json:"sort_order" validate:"omitempty,oneof=asc desc"`
	CreatedAfter   *time.Time `json:"created_after"`
	CreatedBefore  *time.Time `json:"created_before"`
	Tags           []string   `json:"tags" validate:"omitempty,max=20,dive,min=1"`
}

func (r *AdvancedSearchRequest) filters() *domain.SearchFilters {
	return &domain.SearchFilters{
		Query:          strings.TrimSpace(r.Query),
		CategoryID:     r.CategoryID,
		CategorySlug:   r.CategorySlug,
		MinPrice:       r.MinPrice,
		MaxPrice:       r.MaxPrice,
		MinRating:      r.MinRating,
		MinReviews:     r.MinReviews,
		InStock:        r.InStock,
		IsDigital:      r.IsDigital,
		IsFeatured:     r.IsFeatured,
		HasReviews:     r.HasReviews,
		HasImages:      r.HasImages,
		HasVariants:    r.HasVariants,
		TrackInventory: r.TrackInventory,
		IsActive:       r.IsActive,
		OnSale:         r.OnSale,
		Page:           r.Page,
		Limit:          r.Limit,
		SortBy:         r.SortBy,
		SortOrder:      strings.ToLower(r.SortOrder),
		CreatedAfter:   r.CreatedAfter,
		CreatedBefore:  r.CreatedBefore,
		Tags:           r.Tags,
	}
}

// --- Handlers ---

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	filters := search.ParseFilters(r.URL.Query())

	resp, err := h.service.Search(r.Context(), filters)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// QuickSearch handles GET /api/v1/search/quick
func (h *SearchHandler) QuickSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := intParam(r, "limit", domain.DefaultLimit)

	resp, err := h.service.QuickSearch(r.Context(), query, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// AdvancedSearch handles POST /api/v1/search/advanced
func (h *SearchHandler) AdvancedSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AdvancedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	resp, err := h.service.AdvancedSearch(r.Context(), req.filters())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// ByCategory handles GET /api/v1/search/category/{slug}
func (h *SearchHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	filters := search.ParseFilters(r.URL.Query())

	resp, err := h.service.SearchByCategory(r.Context(), slug, filters)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// Similar handles GET /api/v1/products/{id}/similar
func (h *SearchHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	limit := intParam(r, "limit", domain.DefaultSimilar)

	results, err := h.service.FindSimilar(r.Context(), id.String(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"products": results}})
}

// Popular handles GET /api/v1/search/popular
func (h *SearchHandler) Popular(w http.ResponseWriter, r *http.Request) {
	categorySlug := r.URL.Query().Get("category")
	limit := intParam(r, "limit", domain.DefaultLimit)

	results, err := h.service.PopularProducts(r.Context(), categorySlug, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"products": results}})
}

// Featured handles GET /api/v1/search/featured
func (h *SearchHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", domain.DefaultLimit)

	results, err := h.service.FeaturedProducts(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"products": results}})
}

// OnSale handles GET /api/v1/search/on-sale
func (h *SearchHandler) OnSale(w http.ResponseWriter, r *http.Request) {
	filters := search.ParseFilters(r.URL.Query())

	resp, err := h.service.OnSaleProducts(r.Context(), filters)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// Autocomplete handles GET /api/v1/search/suggest
func (h *SearchHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := intParam(r, "limit", domain.DefaultSuggestions)

	suggestions, err := h.service.Autocomplete(r.Context(), query, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"suggestions": suggestions}})
}

// intParam reads a positive integer query parameter, falling back to def
// when absent or unparsable.
func intParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// ClientContext attaches the caller's identity and network details to the
// request context for analytics emission.
func ClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := analytics.ClientInfo{
			UserID:    r.Header.Get("X-User-ID"),
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
		}
		ctx := analytics.WithClientInfo(r.Context(), info)
		if info.UserID != "" {
			ctx = middleware.WithUserID(ctx, info.UserID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
