package scraper

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"sjsage522/productfinder/pkg/errors"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncRequest("ok")
		m.ObserveDuration(time.Second)
		m.IncPage("continue")
		m.AddItems(3)
		m.IncError(errors.NewValidation("scraper", "bad"))
	})
}

func TestMetricsErrorLabels(t *testing.T) {
	m := NewMetrics()

	m.IncError(errors.NewTimeout("h", "slow", nil))
	m.IncError(io.EOF)
	m.IncError(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("unknown")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.IncRequest("ok")
	m.AddItems(12)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `productfinder_requests_total{outcome="ok"} 1`)
	assert.Contains(t, body, "productfinder_items_extracted_total 12")
}
