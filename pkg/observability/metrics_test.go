package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDecision(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveDecision("screen", true, "LOCAL")
	m.ObserveDecision("screen", true, "LOCAL")
	m.ObserveDecision("data", false, "REMOTE")

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.AccessDecisionsTotal.WithLabelValues("screen", "granted", "LOCAL")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.AccessDecisionsTotal.WithLabelValues("data", "denied", "REMOTE")))
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.DecisionCacheHitsTotal.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "qrmfg_decision_cache_hits_total 1")
}

func TestInstrumentHandler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	handler := m.InstrumentHandler("/qrmfg/api/menu", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/qrmfg/api/menu", nil))

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/qrmfg/api/menu", "404")))
}

func TestNewMetricsNilRegistry(t *testing.T) {
	m := NewMetrics(nil)
	require.NotNil(t, m)
	m.MenuBuildsTotal.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MenuBuildsTotal))
}
