package providers

import (
	"instametrics/internal/structures"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockMetrics struct {
	requestEndpoint string
	requestStatus   int
	requestCalls    int
	durationCalls   int
}

func (m *mockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.requestEndpoint = endpoint
	m.requestStatus = status
	m.requestCalls++
}
func (m *mockMetrics) ObserveRequestDuration(_ string, _ time.Duration)   { m.durationCalls++ }
func (m *mockMetrics) IncCacheHits(_ string)                               {}
func (m *mockMetrics) IncCacheMisses(_ string)                             {}
func (m *mockMetrics) IncUpstreamCalls(_, _ string)                       {}
func (m *mockMetrics) ObserveUpstreamDuration(_ string, _ time.Duration)  {}
func (m *mockMetrics) SetBreakerState(_ string, _ float64)                {}
func (m *mockMetrics) IncDegraded(_ string)                               {}
func (m *mockMetrics) IncCollectorRuns(_, _ string)                       {}
func (m *mockMetrics) ObserveCollectorDuration(_ string, _ time.Duration) {}
func (m *mockMetrics) AddSnapshotsPurged(_ int)                           {}

var metricsTestRoutes = []structures.Route{{Url: "/api/insights"}, {Url: "/api/followers"}}

func TestMetricsMiddleware_CapturesStatusAndEndpoint(t *testing.T) {
	metrics := &mockMetrics{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	mw := MetricsMiddleware(metrics, metricsTestRoutes, handler)

	req := httptest.NewRequest(http.MethodGet, "/api/insights?type=bogus", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.Equal(t, 1, metrics.requestCalls)
	assert.Equal(t, "/api/insights", metrics.requestEndpoint)
	assert.Equal(t, http.StatusBadRequest, metrics.requestStatus)
	assert.Equal(t, 1, metrics.durationCalls)
}

func TestMetricsMiddleware_DefaultStatus200(t *testing.T) {
	metrics := &mockMetrics{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mw := MetricsMiddleware(metrics, metricsTestRoutes, handler)

	req := httptest.NewRequest(http.MethodGet, "/api/followers", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, metrics.requestStatus)
}

func TestMetricsMiddleware_UnknownPathsShareOneLabel(t *testing.T) {
	metrics := &mockMetrics{}
	mw := MetricsMiddleware(metrics, metricsTestRoutes, http.NotFoundHandler())

	for _, path := range []string{"/wp-login.php", "/api/insights/extra"} {
		rr := httptest.NewRecorder()
		mw.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, "unmatched", metrics.requestEndpoint, path)
		assert.Equal(t, http.StatusNotFound, metrics.requestStatus)
	}
}

func TestStatusWriter_WriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rr, status: http.StatusOK}

	sw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, sw.status)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
