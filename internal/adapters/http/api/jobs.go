package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/okian/trendetl/internal/adapters/mq/queue"
	"github.com/okian/trendetl/pkg/logger"
)

// List limits for GET /jobs.
const (
	defaultJobsLimit = 50
	maxJobsLimit     = 1000

	// jobQueueCapacity bounds background job requests awaiting dispatch.
	jobQueueCapacity = 32
)

type acceptedResponse struct {
	Status string `json:"status"`
	Type   string `json:"type"`
}

// JobsHandler triggers and reads jobs.
type JobsHandler struct {
	// base outlives requests so background runs survive the response.
	base     context.Context
	deps     JobDependencies
	jobTypes []string
	pending  queue.Queue[string]
	logger   logger.Logger
}

// NewJobsHandler creates a jobs handler and starts its dispatcher. Background
// requests run one at a time in arrival order; dispatch stops when base is
// done.
func NewJobsHandler(base context.Context, deps JobDependencies, jobTypes []string, log logger.Logger) *JobsHandler {
	h := &JobsHandler{
		base:     base,
		deps:     deps,
		jobTypes: jobTypes,
		pending:  queue.NewInMemoryQueue[string](queue.WithName("jobs"), queue.WithCapacity(jobQueueCapacity)),
		logger:   log,
	}
	go h.dispatch()
	return h
}

func (h *JobsHandler) dispatch() {
	for jobType := range h.pending.Dequeue(h.base) {
		if _, err := h.deps.Trigger(h.base, jobType); err != nil {
			h.logger.Warn(h.base, "background job failed",
				logger.String("type", jobType),
				logger.Error(err))
		}
	}
	_ = h.pending.Close()
}

// HandleTrigger handles POST /jobs/{type}. With ?wait=true the job runs
// within the request and the sealed job is returned; otherwise it is queued
// for the dispatcher and 202 is returned, or 503 when the queue is full.
func (h *JobsHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	const op = "api.trigger_job"
	jobType := r.PathValue("type")
	if !slices.Contains(h.jobTypes, jobType) {
		writeError(w, http.StatusNotFound, "unknown_job_type", fmt.Errorf("%s: %w: %q", op, ErrUnknownJobType, jobType))
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		j, err := h.deps.Trigger(r.Context(), jobType)
		if j == nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, j)
		return
	}

	if !h.pending.Enqueue(r.Context(), jobType) {
		writeError(w, http.StatusServiceUnavailable, "queue_full", fmt.Errorf("%s: job queue is full", op))
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", Type: jobType})
}

// HandleList handles GET /jobs?type=&limit=.
func (h *JobsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultJobsLimit, maxJobsLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	jobs, err := h.deps.Jobs(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// HandleGet handles GET /jobs/{id}.
func (h *JobsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	j, err := h.deps.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}
