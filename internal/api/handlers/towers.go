package handlers

import (
	"log/slog"
	"net/http"
	"signal-simulation-service/internal/api/dto"
	"signal-simulation-service/internal/platform/logging"
	"signal-simulation-service/internal/ports"
)

// TowerHandler exposes the persisted tower layout read-only.
type TowerHandler struct {
	Repo ports.TowerRepository
}

func (h *TowerHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	towers, err := h.Repo.ListTowers(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "list towers failed", slog.String("error", err.Error()))
		writeError(w, r, http.StatusServiceUnavailable, "tower store unavailable")
		return
	}

	res := make([]dto.TowerResponse, 0, len(towers))
	for _, t := range towers {
		res = append(res, dto.TowerResponse{ID: t.ID, X: t.X, Y: t.Y})
	}

	writeJSON(w, r, http.StatusOK, res)
}
