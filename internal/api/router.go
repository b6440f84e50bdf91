package api

import (
	"log/slog"
	"net/http"
	"signal-simulation-service/internal/api/handlers"
	"signal-simulation-service/internal/platform/obs"
	"signal-simulation-service/internal/ports"
	"signal-simulation-service/internal/services"
	"time"
)

type RouterDeps struct {
	Repo         ports.TowerRepository
	Processor    *services.SignalProcessor
	Logger       *slog.Logger
	Metrics      *obs.Collector // optional
	ProbeTimeout time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	signalHandler := &handlers.SignalHandler{Processor: deps.Processor}
	towerHandler := &handlers.TowerHandler{Repo: deps.Repo}
	healthHandler := &handlers.HealthHandler{Repo: deps.Repo, ProbeTimeout: deps.ProbeTimeout}

	mux.HandleFunc("/signal", signalHandler.Ingest)
	mux.HandleFunc("/towers", towerHandler.List)
	mux.HandleFunc("/api/simulation/towers", towerHandler.List)
	mux.HandleFunc("/healthz", healthHandler.Healthz)
	mux.HandleFunc("/readyz", healthHandler.Readyz)

	routes := map[string]struct{}{
		"/signal":                {},
		"/towers":                {},
		"/api/simulation/towers": {},
		"/healthz":               {},
		"/readyz":                {},
	}

	return instrument(mux, deps.Logger, deps.Metrics, routes)
}
