package handler

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

// Health reports process liveness and uptime.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(startedAt).Seconds()),
	})
}
