package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"signal-simulation-service/internal/platform/logging"
	"signal-simulation-service/internal/ports"
	"time"
)

// HealthHandler serves liveness and readiness probes backed by the tower store.
type HealthHandler struct {
	Repo         ports.TowerRepository
	ProbeTimeout time.Duration
}

// Healthz reports ok when the process is up and the store answers a ping.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := h.probeContext(r)
	defer cancel()

	if err := h.Repo.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).WarnContext(r.Context(), "health check failed", slog.String("error", err.Error()))
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "store": "unreachable"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "store": "ok"})
}

// Readyz reports ready once a tower layout has been persisted.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := h.probeContext(r)
	defer cancel()

	n, err := h.Repo.CountTowers(ctx)
	if err != nil {
		logging.FromContext(r.Context()).WarnContext(r.Context(), "readiness check failed", slog.String("error", err.Error()))
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]any{"ready": false})
		return
	}
	if n == 0 {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]any{"ready": false, "towers": 0})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"ready": true, "towers": n})
}

func (h *HealthHandler) probeContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := h.ProbeTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}
