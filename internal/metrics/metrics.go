// v2
// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes recorded by ObserveFetch.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics owns a private registry so several servers can live in one
// process (and in tests) without duplicate registration panics. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	fetchTotal        *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	diagnostics       *prometheus.CounterVec
	leaderboardRows   prometheus.Histogram
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New builds and registers every collector under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_fetch_total",
			Help:      "Leaderboard fetches by transport and outcome.",
		}, []string{"transport", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaderboard_fetch_duration_seconds",
			Help:      "Latency of the single remote call behind a dashboard load.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Classified load failures by kind.",
		}, []string{"kind"}),
		leaderboardRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaderboard_entries",
			Help:      "Number of entries produced per successful load or served per function call.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.fetchTotal,
		m.fetchDuration,
		m.diagnostics,
		m.leaderboardRows,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

// ObserveFetch records one remote call.
func (m *Metrics) ObserveFetch(transport string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.fetchTotal.WithLabelValues(transport, outcome).Inc()
	m.fetchDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

// IncDiagnostic counts a classified failure.
func (m *Metrics) IncDiagnostic(kind string) {
	if m == nil {
		return
	}
	m.diagnostics.WithLabelValues(kind).Inc()
}

// ObserveEntries records how many leaderboard entries a response carried.
func (m *Metrics) ObserveEntries(n int) {
	if m == nil {
		return
	}
	m.leaderboardRows.Observe(float64(n))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
