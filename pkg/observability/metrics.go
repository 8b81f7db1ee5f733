package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the portal core
type Metrics struct {
	// Access decision metrics
	AccessDecisionsTotal     *prometheus.CounterVec
	DecisionCacheHitsTotal   prometheus.Counter
	DecisionCacheMissesTotal prometheus.Counter

	// Remote authorization metrics
	RemoteAuthorizeDuration    prometheus.Histogram
	RemoteAuthorizeErrorsTotal *prometheus.CounterVec

	// Navigation metrics
	MenuBuildsTotal prometheus.Counter

	// Response cache metrics
	ResponseCacheHitsTotal   prometheus.Counter
	ResponseCacheMissesTotal prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		AccessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrmfg_access_decisions_total",
				Help: "Access decisions by requirement kind, outcome and source",
			},
			[]string{"kind", "outcome", "source"},
		),
		DecisionCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qrmfg_decision_cache_hits_total",
				Help: "Decision cache hits",
			},
		),
		DecisionCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qrmfg_decision_cache_misses_total",
				Help: "Decision cache misses",
			},
		),
		RemoteAuthorizeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "qrmfg_remote_authorize_duration_seconds",
				Help:    "Remote authorization round-trip duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		RemoteAuthorizeErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrmfg_remote_authorize_errors_total",
				Help: "Remote authorization failures by class",
			},
			[]string{"class"},
		),
		MenuBuildsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qrmfg_menu_builds_total",
				Help: "Navigation menu builds",
			},
		),
		ResponseCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qrmfg_response_cache_hits_total",
				Help: "Response cache hits",
			},
		),
		ResponseCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qrmfg_response_cache_misses_total",
				Help: "Response cache misses",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrmfg_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qrmfg_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.AccessDecisionsTotal,
		m.DecisionCacheHitsTotal,
		m.DecisionCacheMissesTotal,
		m.RemoteAuthorizeDuration,
		m.RemoteAuthorizeErrorsTotal,
		m.MenuBuildsTotal,
		m.ResponseCacheHitsTotal,
		m.ResponseCacheMissesTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// ObserveDecision records an access decision outcome.
func (m *Metrics) ObserveDecision(kind string, granted bool, source string) {
	outcome := "denied"
	if granted {
		outcome = "granted"
	}
	m.AccessDecisionsTotal.WithLabelValues(kind, outcome, source).Inc()
}

// Handler returns an HTTP handler exposing the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request counting and timing.
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
