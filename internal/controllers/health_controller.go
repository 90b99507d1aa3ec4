package controllers

import (
	"context"
	"fmt"
	"instametrics/internal/collector/interfaces"
	"instametrics/internal/providers"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db        Pinger
	collector interfaces.SchedulerInterface
	logger    providers.Logger
	startTime time.Time
}

type collectorHealth struct {
	Running bool   `json:"running"`
	LastRun string `json:"last_run,omitempty"`
}

type healthResponse struct {
	Status        string          `json:"status"`
	Uptime        string          `json:"uptime"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Database      string          `json:"database"`
	Collector     collectorHealth `json:"collector"`
}

// Health answers 503 with status "degraded" when the database is unreachable.
func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		providers.WriteFailure(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Database:      "ok",
		Collector:     collectorHealth{Running: hc.collector.Running()},
	}
	if last := hc.collector.LastRun(); !last.IsZero() {
		resp.Collector.LastRun = last.UTC().Format(time.RFC3339)
	}

	status := http.StatusOK
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := hc.db.Ping(ctx); err != nil {
		hc.logger.Errorf(providers.TypeGet, "health check: database ping failed: %s", err)
		resp.Status, resp.Database = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	}

	providers.WriteJSON(w, status, providers.APIResponse{Success: status == http.StatusOK, Data: resp})
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(db Pinger, collector interfaces.SchedulerInterface, logger providers.Logger) *HealthController {
	return &HealthController{
		db:        db,
		collector: collector,
		logger:    logger,
		startTime: time.Now(),
	}
}
