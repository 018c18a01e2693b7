// Package metrics exposes Prometheus collectors for comparison runs and the
// HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector on its own registry
type Metrics struct {
	registry *prometheus.Registry

	runsTotal          *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	featuresEvaluated  *prometheus.CounterVec
	featureLatency     *prometheus.HistogramVec
	rejectedFeatures   *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

// New creates a registry with Go runtime and process collectors plus the
// comparison metrics
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gostamp",
			Name:      "comparison_runs_total",
			Help:      "Comparison runs by kind, method and outcome",
		}, []string{"kind", "method", "status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gostamp",
			Name:      "comparison_run_duration_seconds",
			Help:      "Wall-clock duration of comparison runs",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind", "method"}),
		featuresEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gostamp",
			Name:      "features_evaluated_total",
			Help:      "Per-feature estimator evaluations by method and outcome",
		}, []string{"method", "status"}),
		featureLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gostamp",
			Name:      "feature_evaluation_seconds",
			Help:      "Latency of one per-feature evaluation",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"method"}),
		rejectedFeatures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gostamp",
			Name:      "features_rejected_total",
			Help:      "Features rejected after multiple-comparison correction",
		}, []string{"correction"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gostamp",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "method", "code"}),
		httpRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gostamp",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveRun records one finished run
func (m *Metrics) ObserveRun(kind, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(kind, method, status).Inc()
	m.runDuration.WithLabelValues(kind, method).Observe(duration.Seconds())
}

// ObserveFeature records one per-feature evaluation
func (m *Metrics) ObserveFeature(method string, failed bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.featuresEvaluated.WithLabelValues(method, status).Inc()
	m.featureLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// AddRejected counts features rejected by a correction
func (m *Metrics) AddRejected(correction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rejectedFeatures.WithLabelValues(correction).Add(float64(n))
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(route, method, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpRequestLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
