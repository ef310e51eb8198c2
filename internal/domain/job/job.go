// Package job wraps engine runs in tracked job records with exactly one
// terminal transition.
package job

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"
)

// Store persists job records. Seal must refuse a job that is not running.
type Store interface {
	Create(ctx context.Context, j *model.Job) error
	Seal(ctx context.Context, id string, status model.JobStatus, result model.JobResult, reason string, end time.Time) (*model.Job, error)
}

// Work is the body of a tracked run. On error it returns the partial result
// collected so far.
type Work func(ctx context.Context) (model.JobResult, error)

type progressKey struct{}

type progress struct {
	mu     sync.Mutex
	result model.JobResult
}

// Publish records r as the partial result of the job running under ctx. A
// run that panics is sealed with the last published result. Outside a
// tracked run it does nothing.
func Publish(ctx context.Context, r model.JobResult) {
	p, ok := ctx.Value(progressKey{}).(*progress)
	if !ok {
		return
	}
	var snapshot model.JobResult
	snapshot.Merge(r)
	p.mu.Lock()
	p.result = snapshot
	p.mu.Unlock()
}

func (p *progress) last() model.JobResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Tracker creates, runs and seals jobs.
type Tracker struct {
	store  Store
	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

// NewTracker creates a tracker backed by store.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("jobs")
	}
	return t
}

// Run records a running job, invokes work and seals the job completed or
// failed. A panic in work is converted into a job-fatal error and the job is
// sealed with the last result work published. The error from work is
// returned unchanged alongside the sealed job.
func (t *Tracker) Run(ctx context.Context, name, jobType string, work Work) (*model.Job, error) {
	j := &model.Job{
		ID:        t.newID(),
		Name:      name,
		Type:      jobType,
		Status:    model.JobRunning,
		StartTime: t.now(),
	}
	if err := t.store.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.RecordJobStarted()
	t.logger.Info(ctx, "job started",
		logger.String("job_id", j.ID),
		logger.String("type", jobType),
		logger.String("name", name),
	)

	result, workErr := t.invoke(ctx, j.ID, work)

	status, reason := model.JobCompleted, ""
	if workErr != nil {
		status, reason = model.JobFailed, etlerr.ReasonOf(workErr)
	}

	end := t.now()
	// The run may have been cancelled; sealing must still happen.
	sealed, err := t.store.Seal(context.WithoutCancel(ctx), j.ID, status, result, reason, end)
	if err != nil {
		return nil, fmt.Errorf("seal job %s: %w", j.ID, err)
	}

	took := end.Sub(j.StartTime)
	metrics.RecordJobSealed(jobType, string(status), float64(took.Milliseconds()))
	fields := []logger.Field{
		logger.String("job_id", j.ID),
		logger.String("type", jobType),
		logger.String("status", string(status)),
		logger.Int("processed", result.Processed),
		logger.Int("failed", result.Failed),
		logger.Int("skipped", result.Skipped),
		logger.Duration("took", took),
	}
	if workErr != nil {
		t.logger.Error(ctx, "job failed", append(fields, logger.Error(workErr))...)
	} else {
		t.logger.Info(ctx, "job completed", fields...)
	}
	return sealed, workErr
}

func (t *Tracker) invoke(ctx context.Context, jobID string, work Work) (result model.JobResult, err error) {
	p := &progress{}
	ctx = context.WithValue(ctx, progressKey{}, p)
	defer func() {
		if r := recover(); r != nil {
			result = p.last()
			t.logger.Error(ctx, "job panicked",
				logger.String("job_id", jobID),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			err = etlerr.Fatal("job.run", fmt.Errorf("panic: %v", r))
		}
	}()
	return work(ctx)
}
