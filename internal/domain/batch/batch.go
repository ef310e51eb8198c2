// Package batch drives chunked processing of prioritized items with bounded
// fan-out, per-item isolation and in-run deduplication.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/trendetl/internal/adapters/mq/worker"
	"github.com/okian/trendetl/internal/domain/dedupe"
	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/job"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"
)

// Defaults.
const (
	DefaultBatchSize       = 10
	DefaultInterBatchDelay = time.Second
	DefaultWorkers         = 10
)

// Item outcomes, also used as metric labels.
const (
	OutcomeStored  = "stored"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Handler supplies the per-item stages for items of type T producing
// entities of type E.
type Handler[T, E any] interface {
	// SourceID identifies the item in reasons and logs.
	SourceID(item T) string
	// Priority returns the item's assigned priority.
	Priority(item T) model.Priority
	// Extract derives the entity and its id. An empty id means the item
	// carries no identifiable entity. Validation and extraction errors skip
	// the item; any other error fails it.
	Extract(ctx context.Context, item T) (E, string, error)
	// Validate rejects an entity; a rejection fails the item.
	Validate(entity E) error
	// Store persists the entity and returns the stored id.
	Store(ctx context.Context, item T, entity E) (string, error)
}

// DelayFunc waits between chunks. It returns early with ctx.Err() when ctx
// is done.
type DelayFunc func(ctx context.Context, d time.Duration) error

// Summary aggregates the outcomes of one Run.
type Summary struct {
	Extracted  int
	Stored     int
	Failed     int
	Skipped    int
	Batches    int
	ByPriority map[model.Priority]int
	OutputIDs  []string
	Reasons    []string
}

// Total is stored + failed + skipped.
func (s Summary) Total() int {
	return s.Stored + s.Failed + s.Skipped
}

// Result converts the summary into a job result.
func (s Summary) Result() model.JobResult {
	return model.JobResult{
		Processed:  s.Stored,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		OutputIDs:  s.OutputIDs,
		ByPriority: s.ByPriority,
		Reasons:    s.Reasons,
	}
}

// Scheduler runs items through a Handler chunk by chunk.
type Scheduler[T, E any] struct {
	cfg settings
}

// New creates a scheduler.
func New[T, E any](opts ...Option) *Scheduler[T, E] {
	cfg := settings{
		name:      "batch",
		batchSize: DefaultBatchSize,
		delay:     DefaultInterBatchDelay,
		delayFunc: Sleep,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.batchSize < 1 {
		cfg.batchSize = DefaultBatchSize
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named(cfg.name)
	}
	if cfg.pool == nil {
		cfg.pool = worker.NewPool(DefaultWorkers, worker.WithName(cfg.name+"-pool"), worker.WithLogger(cfg.logger))
	}
	return &Scheduler[T, E]{cfg: cfg}
}

// outcome is the fan-in record of one item.
type outcome struct {
	kind      string
	priority  model.Priority
	extracted bool
	outputID  string
	reason    string
}

// Run processes items in order. Chunks run sequentially, items within a chunk
// concurrently. Cancellation is checked before each chunk; a cancelled run
// returns the partial summary and a job-fatal error.
func (s *Scheduler[T, E]) Run(ctx context.Context, items []T, h Handler[T, E]) (Summary, error) {
	sum := Summary{ByPriority: make(map[model.Priority]int)}
	seen := dedupe.New()
	log := s.cfg.logger

	for start := 0; start < len(items); start += s.cfg.batchSize {
		if err := ctx.Err(); err != nil {
			log.Warn(ctx, "run cancelled between batches",
				logger.Int("batch", sum.Batches),
				logger.Int("handled", sum.Total()),
			)
			return sum, etlerr.Fatal(s.cfg.name+".run", err)
		}

		if start > 0 {
			metrics.RecordInterBatchWait()
			if err := s.cfg.delayFunc(ctx, s.cfg.delay); err != nil {
				return sum, etlerr.Fatal(s.cfg.name+".run", err)
			}
		}

		end := min(start+s.cfg.batchSize, len(items))
		chunk := items[start:end]
		began := time.Now()

		results := worker.Map(ctx, s.cfg.pool, chunk, func(ctx context.Context, item T) (outcome, error) {
			return s.process(ctx, item, h, seen), nil
		})

		for i, r := range results {
			o := r.Value
			if r.Err != nil {
				// Panics inside the handler surface here.
				o = outcome{
					kind:     OutcomeFailed,
					priority: h.Priority(chunk[i]),
					reason:   h.SourceID(chunk[i]) + ": " + r.Err.Error(),
				}
			}
			sum.add(o)
			metrics.RecordItem(s.cfg.name, o.kind)
		}
		sum.Batches++
		metrics.RecordBatch(s.cfg.name, float64(time.Since(began).Milliseconds()))
		job.Publish(ctx, sum.Result())

		log.Debug(ctx, "batch finished",
			logger.Int("batch", sum.Batches),
			logger.Int("size", len(chunk)),
			logger.Int("stored", sum.Stored),
			logger.Int("failed", sum.Failed),
			logger.Int("skipped", sum.Skipped),
		)
	}
	return sum, nil
}

func (s *Summary) add(o outcome) {
	s.ByPriority[o.priority]++
	if o.extracted {
		s.Extracted++
	}
	switch o.kind {
	case OutcomeStored:
		s.Stored++
		s.OutputIDs = append(s.OutputIDs, o.outputID)
	case OutcomeSkipped:
		s.Skipped++
		s.Reasons = append(s.Reasons, o.reason)
	default:
		s.Failed++
		s.Reasons = append(s.Reasons, o.reason)
	}
}

func (s *Scheduler[T, E]) process(ctx context.Context, item T, h Handler[T, E], seen dedupe.Deduper) outcome {
	src := h.SourceID(item)
	o := outcome{priority: h.Priority(item)}

	entity, id, err := h.Extract(ctx, item)
	switch {
	case err != nil && skippable(err):
		return o.skip(src, etlerr.ReasonOf(err))
	case err != nil:
		return o.fail(src, etlerr.ReasonOf(err))
	case id == "":
		return o.skip(src, "no identifiable entity")
	}
	o.extracted = true

	if seen.SeenAndRecord(ctx, id) {
		return o.skip(src, fmt.Sprintf("duplicate entity %s in this run", id))
	}

	if err := h.Validate(entity); err != nil {
		seen.Unrecord(ctx, id)
		metrics.RecordValidationRejected(s.cfg.name)
		return o.fail(src, etlerr.ReasonOf(err))
	}

	out, err := h.Store(ctx, item, entity)
	if err != nil {
		seen.Unrecord(ctx, id)
		s.cfg.logger.Warn(ctx, "store failed",
			logger.String("source", src),
			logger.String("entity", id),
			logger.Error(err),
		)
		return o.fail(src, etlerr.ReasonOf(err))
	}

	o.kind = OutcomeStored
	o.outputID = out
	return o
}

func (o outcome) skip(src, reason string) outcome {
	o.kind = OutcomeSkipped
	o.reason = src + ": " + reason
	return o
}

func (o outcome) fail(src, reason string) outcome {
	o.kind = OutcomeFailed
	o.reason = src + ": " + reason
	return o
}

func skippable(err error) bool {
	return errors.Is(err, etlerr.ErrValidation) || errors.Is(err, etlerr.ErrExtraction)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
