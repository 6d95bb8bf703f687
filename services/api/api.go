package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sjsage522/productfinder/internal/scraper"
	"sjsage522/productfinder/logger"
	"sjsage522/productfinder/pkg/errors"
)

// DefaultLimit is used when a search request has no limit parameter
const DefaultLimit = 20

// SearchService answers keyword searches with product summaries
type SearchService interface {
	Search(ctx context.Context, keyword string, limit int) []scraper.ProductSummary
}

// ProductService looks up the detail page of one item
type ProductService interface {
	Details(ctx context.Context, itemID string) (scraper.ProductInformation, error)
}

// SearchResponse is the body returned by the search endpoint
type SearchResponse struct {
	Keyword  string                   `json:"keyword"`
	Count    int                      `json:"count"`
	Products []scraper.ProductSummary `json:"products"`
}

// Handlers serves the search and product endpoints
type Handlers struct {
	search   SearchService
	products ProductService
}

// NewHandlers creates handlers backed by search. products may be nil, which
// leaves the product route unmounted.
func NewHandlers(search SearchService, products ProductService) *Handlers {
	return &Handlers{search: search, products: products}
}

// NewRouter mounts health, metrics and search routes. metrics may be nil.
func NewRouter(handlers *Handlers, metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", handlers.Search)
		if handlers.products != nil {
			r.Get("/products/{asin}", handlers.Product)
		}
	})

	return r
}

// Search handles GET /api/v1/search?q=<keyword>&limit=<n>
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	if keyword == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > scraper.MaxTargetCount {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	products := h.search.Search(r.Context(), keyword, limit)
	respondJSON(w, http.StatusOK, SearchResponse{
		Keyword:  keyword,
		Count:    len(products),
		Products: products,
	})
}

// Product handles GET /api/v1/products/{asin}
func (h *Handlers) Product(w http.ResponseWriter, r *http.Request) {
	info, err := h.products.Details(r.Context(), chi.URLParam(r, "asin"))
	if err != nil {
		logger.LogError("api", err, "product lookup failed")
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeRateLimit:
		return http.StatusServiceUnavailable
	case errors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.LogError("api", err, "failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
