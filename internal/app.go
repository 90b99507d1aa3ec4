package internal

import (
	"context"
	"errors"
	"fmt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"instametrics/internal/collector/interfaces"
	"instametrics/internal/controllers"
	"instametrics/internal/database"
	"instametrics/internal/providers"
	"instametrics/internal/structures"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	WebServer *http.Server
	scheduler interfaces.SchedulerInterface
	db        *database.DB
	logger    providers.Logger
	conf      *structures.Config
}

func NewApp(healthController *controllers.HealthController, scheduler interfaces.SchedulerInterface, conf *structures.Config, logger providers.Logger, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface, db *database.DB) *App {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", providers.MetricsMiddleware(metrics, router.GetRoutes(), apiMux))

	var handler http.Handler = mux
	handler = providers.AccessLogMiddleware(logger, handler)
	handler = providers.RequestIDMiddleware(handler)
	handler = providers.CORSMiddleware(handler)

	return &App{
		WebServer: &http.Server{
			Addr:         net.JoinHostPort(conf.WebServer.Host, strconv.Itoa(conf.WebServer.Port)),
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		scheduler: scheduler,
		db:        db,
		logger:    logger,
		conf:      conf,
	}
}

// Run serves HTTP and the collector until SIGINT or SIGTERM.
func (a *App) Run() error {
	a.logger.Infof(providers.TypeApp, "Starting %s", a.conf.AppName)
	a.scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Infof(providers.TypeApp, "Listening HTTP clients on %s", a.WebServer.Addr)
		if err := a.WebServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case <-stop:
		a.logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown stops the collector, drains in-flight requests, then closes the
// database and the logger.
func (a *App) Shutdown() error {
	a.scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.WebServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}
	if len(errs) == 0 {
		a.logger.Infof(providers.TypeApp, "gracefully stopped")
	}
	a.logger.Close()
	return errors.Join(errs...)
}
