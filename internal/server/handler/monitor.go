package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cwhitfield/tickwatch/internal/engine"
)

// MonitorHandler exposes the monitor start/stop control surface and the
// status query. The monitor loop outlives any single request, so Start runs
// it on the process base context rather than the request context.
type MonitorHandler struct {
	scheduler *engine.Scheduler
	baseCtx   context.Context
	log       *slog.Logger
}

func NewMonitorHandler(scheduler *engine.Scheduler, baseCtx context.Context, log *slog.Logger) *MonitorHandler {
	return &MonitorHandler{
		scheduler: scheduler,
		baseCtx:   baseCtx,
		log:       log.With("component", "monitor_handler"),
	}
}

// Start handles POST /api/monitor/start. Idempotent.
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Start(h.baseCtx)
	writeJSON(w, http.StatusOK, map[string]any{"is_running": true})
}

// Stop handles POST /api/monitor/stop. Idempotent.
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"is_running": false})
}

// Status handles GET /api/monitor/status.
func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.scheduler.Status(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
