// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/trendetl/internal/domain/correlation"
	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/internal/domain/similarity"
	"github.com/okian/trendetl/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the engine implementation.
type Dependencies interface {
	JobDependencies
	EntityDependencies
	StatsProvider
}

// JobDependencies runs and reads jobs.
type JobDependencies interface {
	Trigger(ctx context.Context, jobType string) (*model.Job, error)
	Job(ctx context.Context, id string) (*model.Job, error)
	Jobs(ctx context.Context, jobType string, limit int) ([]*model.Job, error)
}

// EntityDependencies reads sounds, templates and reports.
type EntityDependencies interface {
	Sound(ctx context.Context, id string) (*model.Sound, error)
	Template(ctx context.Context, id string) (*model.Template, error)
	LatestReport(ctx context.Context) (*model.TrendReport, error)
	Report(ctx context.Context, id string) (*model.TrendReport, error)
	FindSimilar(ctx context.Context, id string, limit int) ([]similarity.Match, error)
	Correlate(ctx context.Context, soundID string) ([]correlation.Correlation, error)
}

// Server wires HTTP routes for the control API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	jobsHandler   *JobsHandler
	entityHandler *EntityHandler
}

// NewServer creates a new API server with all handlers. jobTypes lists the
// types accepted by POST /jobs/{type}.
func NewServer(ctx context.Context, deps Dependencies, jobTypes []string, log logger.Logger) *Server {
	if log == nil {
		log = logger.Get().Named("api")
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(deps),
		jobsHandler:   NewJobsHandler(ctx, deps, jobTypes, log),
		entityHandler: NewEntityHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /jobs/{type}", MetricsMiddleware(s.jobsHandler.HandleTrigger, "jobs_trigger"))
	mux.HandleFunc("GET /jobs", MetricsMiddleware(s.jobsHandler.HandleList, "jobs"))
	mux.HandleFunc("GET /jobs/{id}", MetricsMiddleware(s.jobsHandler.HandleGet, "job"))

	mux.HandleFunc("GET /reports/latest", MetricsMiddleware(s.entityHandler.HandleLatestReport, "report_latest"))
	mux.HandleFunc("GET /reports/{id}", MetricsMiddleware(s.entityHandler.HandleReport, "report"))
	mux.HandleFunc("GET /sounds/{id}", MetricsMiddleware(s.entityHandler.HandleSound, "sound"))
	mux.HandleFunc("GET /sounds/{id}/correlations", MetricsMiddleware(s.entityHandler.HandleCorrelations, "sound_correlations"))
	mux.HandleFunc("GET /templates/{id}", MetricsMiddleware(s.entityHandler.HandleTemplate, "template"))
	mux.HandleFunc("GET /templates/{id}/similar", MetricsMiddleware(s.entityHandler.HandleSimilar, "template_similar"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeLookupError maps engine errors onto status codes.
func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, etlerr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, etlerr.ErrValidation), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// queryLimit reads a positive limit query parameter, falling back to def.
func queryLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, WrapKind("api.limit", ErrBadRequest, errors.New("limit must be an integer between 1 and "+strconv.Itoa(maxLimit)))
	}
	return n, nil
}
