package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

var startTime = time.Now()

// HandleHealthz is a liveness probe: the process is up and serving.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "ok"}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleReadyz is a readiness probe: fails until the database answers a ping.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := json.NewEncoder(w).Encode(map[string]any{"status": "unready", "error": err.Error()}); err != nil {
			slog.Warn("failed to encode JSON response", slog.Any("err", err))
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "ready"}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleStatus reports coarse runtime state for dashboards.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	active := 0
	if h.sessions != nil {
		active = h.sessions.Active()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":          "ok",
		"uptime_seconds":  int(time.Since(startTime).Seconds()),
		"active_sessions": active,
	}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
