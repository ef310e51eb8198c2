package api

import "net/http"

// Limits for GET /templates/{id}/similar.
const (
	defaultSimilarLimit = 10
	maxSimilarLimit     = 100
)

// EntityHandler serves sounds, templates and reports.
type EntityHandler struct {
	deps EntityDependencies
}

// NewEntityHandler creates an entity handler.
func NewEntityHandler(deps EntityDependencies) *EntityHandler {
	return &EntityHandler{deps: deps}
}

// HandleSound handles GET /sounds/{id}.
func (h *EntityHandler) HandleSound(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Sound(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleCorrelations handles GET /sounds/{id}/correlations.
func (h *EntityHandler) HandleCorrelations(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Correlate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleTemplate handles GET /templates/{id}.
func (h *EntityHandler) HandleTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.deps.Template(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleSimilar handles GET /templates/{id}/similar?limit=N.
func (h *EntityHandler) HandleSimilar(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultSimilarLimit, maxSimilarLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	m, err := h.deps.FindSimilar(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleLatestReport handles GET /reports/latest.
func (h *EntityHandler) HandleLatestReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.LatestReport(r.Context())
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleReport handles GET /reports/{id}.
func (h *EntityHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.Report(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
