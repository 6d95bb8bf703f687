package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/productfinder/internal/scraper"
	"sjsage522/productfinder/pkg/errors"
)

type mockSearch struct {
	mu       sync.Mutex
	keywords []string
	limits   []int
	products []scraper.ProductSummary
}

func (m *mockSearch) Search(ctx context.Context, keyword string, limit int) []scraper.ProductSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keywords = append(m.keywords, keyword)
	m.limits = append(m.limits, limit)
	if len(m.products) > limit {
		return m.products[:limit]
	}
	return m.products
}

type mockProducts struct {
	ids  []string
	info scraper.ProductInformation
	err  error
}

func (m *mockProducts) Details(ctx context.Context, itemID string) (scraper.ProductInformation, error) {
	m.ids = append(m.ids, itemID)
	return m.info, m.err
}

func newTestRouter(search SearchService) http.Handler {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("productfinder_requests_total 1\n"))
	})
	return NewRouter(NewHandlers(search, nil), metrics)
}

func TestSearchEndpoint(t *testing.T) {
	search := &mockSearch{products: []scraper.ProductSummary{
		{Title: "Mouse A", ItemID: "B001", Price: 19.99, Currency: "USD"},
		{Title: "Mouse B", ItemID: "B002", Price: 24.99, Currency: "USD"},
	}}
	router := newTestRouter(search)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=+wireless+mouse+", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "wireless mouse", body.Keyword)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "B001", body.Products[0].ItemID)

	assert.Equal(t, []string{"wireless mouse"}, search.keywords)
	assert.Equal(t, []int{DefaultLimit}, search.limits)
}

func TestSearchEndpointLimit(t *testing.T) {
	search := &mockSearch{products: []scraper.ProductSummary{{ItemID: "B001"}, {ItemID: "B002"}}}
	router := newTestRouter(search)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=mouse&limit=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, []int{1}, search.limits)
}

func TestSearchEndpointEmptyResultIsArray(t *testing.T) {
	router := newTestRouter(&mockSearch{products: []scraper.ProductSummary{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=nothing", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"products":[]`)
}

func TestSearchEndpointBadRequests(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing keyword", "/api/v1/search"},
		{"blank keyword", "/api/v1/search?q=%20%20"},
		{"limit not a number", "/api/v1/search?q=mouse&limit=ten"},
		{"limit zero", "/api/v1/search?q=mouse&limit=0"},
		{"limit too large", "/api/v1/search?q=mouse&limit=1001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := &mockSearch{}
			rec := httptest.NewRecorder()
			newTestRouter(search).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Empty(t, search.keywords)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&mockSearch{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "productfinder_requests_total")
}

func TestMetricsRouteOptional(t *testing.T) {
	router := NewRouter(NewHandlers(&mockSearch{}, nil), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductEndpoint(t *testing.T) {
	products := &mockProducts{info: scraper.ProductInformation{
		ItemID:      "B0MOUSE001",
		URL:         "https://www.amazon.com/dp/B0MOUSE001",
		Fields:      map[string]string{"brand": "Logitech"},
		BestSeller:  &scraper.BestSeller{Rank: 12, Category: "Electronics"},
		ReviewDates: []string{"May 2, 2024"},
	}}
	router := NewRouter(NewHandlers(&mockSearch{}, products), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/B0MOUSE001", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"B0MOUSE001"}, products.ids)
	assert.JSONEq(t, `{
		"asin": "B0MOUSE001",
		"url": "https://www.amazon.com/dp/B0MOUSE001",
		"fields": {"brand": "Logitech"},
		"best_seller": {"rank": 12, "category": "Electronics"},
		"review_dates": ["May 2, 2024"]
	}`, rec.Body.String())
}

func TestProductEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"bad id", errors.NewValidation("scraper", "invalid item id"), http.StatusBadRequest},
		{"blocked host", errors.NewRateLimit("www.amazon.com", 0), http.StatusServiceUnavailable},
		{"timeout", errors.NewTimeout("www.amazon.com", "request exceeded 10s", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"upstream status", errors.NewHTTPStatus("www.amazon.com", 500), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(NewHandlers(&mockSearch{}, &mockProducts{err: tt.err}), nil)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/B0MOUSE001", nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestProductRouteOptional(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&mockSearch{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/B0MOUSE001", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
