package api

import (
	"context"
	"net/http"
)

// StatsProvider reports engine statistics. The value must encode as JSON.
type StatsProvider interface {
	StatsSnapshot(ctx context.Context) (any, error)
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsProvider.StatsSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
