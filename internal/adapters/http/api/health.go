package api

import (
	"net/http"

	"github.com/okian/trendetl/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler handles liveness and metrics scrapes.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MetricsHandler serves the engine's custom Prometheus registry.
func (h *HealthHandler) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
