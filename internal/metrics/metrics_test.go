package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun("two_group", "fishers", "ok", 10*time.Millisecond)
	m.ObserveRun("two_group", "fishers", "ok", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("two_group", "fishers", "ok")))
}

func TestObserveFeatureAndRejections(t *testing.T) {
	m := New()
	m.ObserveFeature("g_test", false, time.Microsecond)
	m.ObserveFeature("g_test", true, time.Microsecond)
	m.AddRejected("benjamini_hochberg", 3)
	m.AddRejected("benjamini_hochberg", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.featuresEvaluated.WithLabelValues("g_test", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rejectedFeatures.WithLabelValues("benjamini_hochberg")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("two_group", "x", "ok", time.Second)
		m.ObserveFeature("x", false, time.Second)
		m.AddRejected("x", 1)
		m.ObserveHTTP("/health", "GET", "200", time.Second)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("/health", "GET", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gostamp_http_requests_total")
}
