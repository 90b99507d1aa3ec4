package internal

import (
	"context"
	"instametrics/internal/controllers"
	"instametrics/internal/database"
	"instametrics/internal/providers"
	"instametrics/internal/structures"
	"instametrics/internal/testutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appTestScheduler struct {
	stopped bool
}

func (s *appTestScheduler) Init()                          {}
func (s *appTestScheduler) Stop()                          { s.stopped = true }
func (s *appTestScheduler) RunNow(_ context.Context) error { return nil }
func (s *appTestScheduler) LastRun() time.Time             { return time.Time{} }
func (s *appTestScheduler) Running() bool                  { return false }

func newTestApp(t *testing.T, metricsEnabled bool) (*App, *appTestScheduler, *testutil.MockLogger) {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:", 1)
	require.NoError(t, err)

	logger := &testutil.MockLogger{}
	scheduler := &appTestScheduler{}
	conf := &structures.Config{
		AppName:   "instametrics",
		WebServer: structures.Server{Host: "127.0.0.1", Port: 0},
		Metrics:   structures.MetricsConfig{Enabled: metricsEnabled},
	}

	router := providers.NewRouterProvider()
	router.Get("/api/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providers.WriteSuccess(w, http.StatusOK, "pong")
	}))

	app := NewApp(
		controllers.NewHealthController(db, scheduler, logger),
		scheduler, conf, logger, router, testutil.NewMockMetrics(), db,
	)
	return app, scheduler, logger
}

func TestNewApp_ServesHealthAndApi(t *testing.T) {
	app, _, logger := newTestApp(t, false)
	t.Cleanup(func() { _ = app.db.Close() })

	rr := httptest.NewRecorder()
	app.WebServer.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(providers.RequestIDHeader))

	rr = httptest.NewRecorder()
	app.WebServer.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pong")

	assert.True(t, logger.Contains("info", "GET /api/ping 200"))
}

func TestNewApp_MetricsEndpointFollowsConfig(t *testing.T) {
	app, _, _ := newTestApp(t, true)
	t.Cleanup(func() { _ = app.db.Close() })

	rr := httptest.NewRecorder()
	app.WebServer.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	disabled, _, _ := newTestApp(t, false)
	t.Cleanup(func() { _ = disabled.db.Close() })

	rr = httptest.NewRecorder()
	disabled.WebServer.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewApp_KeepsIncomingRequestID(t *testing.T) {
	app, _, _ := newTestApp(t, false)
	t.Cleanup(func() { _ = app.db.Close() })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(providers.RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	app.WebServer.Handler.ServeHTTP(rr, req)

	assert.Equal(t, "req-42", rr.Header().Get(providers.RequestIDHeader))
}

func TestNewApp_CORSPreflight(t *testing.T) {
	app, _, _ := newTestApp(t, false)
	t.Cleanup(func() { _ = app.db.Close() })

	req := httptest.NewRequest(http.MethodOptions, "/api/ping", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	app.WebServer.Handler.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_ShutdownStopsSchedulerAndClosesDatabase(t *testing.T) {
	app, scheduler, logger := newTestApp(t, false)

	require.NoError(t, app.Shutdown())
	assert.True(t, scheduler.stopped)
	assert.Error(t, app.db.Ping(context.Background()))
	assert.True(t, logger.Contains("info", "gracefully stopped"))
}
