// Package service wires the domain components into the engine's pipelines
// and exposes the operations and read APIs used by the HTTP control API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/trendetl/internal/adapters/analyzer"
	workerpool "github.com/okian/trendetl/internal/adapters/mq/worker"
	"github.com/okian/trendetl/internal/adapters/repository"
	"github.com/okian/trendetl/internal/adapters/source"
	"github.com/okian/trendetl/internal/domain/batch"
	"github.com/okian/trendetl/internal/domain/correlation"
	"github.com/okian/trendetl/internal/domain/extract"
	"github.com/okian/trendetl/internal/domain/job"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/internal/domain/priority"
	"github.com/okian/trendetl/internal/domain/report"
	"github.com/okian/trendetl/internal/domain/similarity"
	"github.com/okian/trendetl/internal/domain/validate"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"
)

// Job types.
const (
	JobExtractSounds         = "extract_sounds"
	JobAnalyzeTemplates      = "analyze_templates"
	JobUpdateSoundMetrics    = "update_sound_metrics"
	JobUpdateTemplateMetrics = "update_template_metrics"
	JobRefreshSimilarity     = "refresh_similarity"
	JobBuildReport           = "build_report"
	JobFullPass              = "full_pass"
)

// JobTypes lists every job type in control-flow order.
var JobTypes = []string{
	JobExtractSounds,
	JobAnalyzeTemplates,
	JobUpdateSoundMetrics,
	JobUpdateTemplateMetrics,
	JobRefreshSimilarity,
	JobBuildReport,
	JobFullPass,
}

var jobNames = map[string]string{
	JobExtractSounds:         "extract sounds",
	JobAnalyzeTemplates:      "analyze templates",
	JobUpdateSoundMetrics:    "update sound metrics",
	JobUpdateTemplateMetrics: "update template metrics",
	JobRefreshSimilarity:     "refresh similarity",
	JobBuildReport:           "build trend report",
	JobFullPass:              "full pass",
}

// Defaults.
const (
	defaultMinSimilarity = 0.6
	defaultMaxPairs      = 100
	defaultTrendingTopN  = 20
)

// Service runs the engine's pipelines as tracked jobs. Runs of the same
// type are serialized; different types may overlap.
type Service struct {
	store    repository.Store
	source   source.VideoSource
	analyzer analyzer.Analyzer

	validator   *validate.Validator
	pool        *workerpool.Pool
	tracker     *job.Tracker
	similarity  *similarity.Engine
	correlation *correlation.Analyzer
	reports     *report.Builder

	sounds    *batch.Scheduler[priority.Item, *extract.SoundDraft]
	templates *batch.Scheduler[priority.Item, *model.Template]

	// Configuration
	batchSize       int
	interBatchDelay time.Duration
	delayFunc       batch.DelayFunc
	workerCount     int
	minSimilarity   float64
	maxPairs        int
	similarityOpts  []similarity.Option
	reportTopN      int
	trendingTopN    int
	filter          source.Filter
	now             func() time.Time

	locks map[string]*sync.Mutex

	// runs counts tracked runs in flight; closing refuses new ones.
	runsMu  sync.Mutex
	closing bool
	runs    sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service over its three collaborators.
func New(store repository.Store, src source.VideoSource, an analyzer.Analyzer, opts ...Option) (*Service, error) {
	s := &Service{
		store:           store,
		source:          src,
		analyzer:        an,
		batchSize:       batch.DefaultBatchSize,
		interBatchDelay: batch.DefaultInterBatchDelay,
		delayFunc:       batch.Sleep,
		workerCount:     batch.DefaultWorkers,
		minSimilarity:   defaultMinSimilarity,
		maxPairs:        defaultMaxPairs,
		reportTopN:      report.DefaultTopN,
		trendingTopN:    defaultTrendingTopN,
		now:             time.Now,
		locks:           make(map[string]*sync.Mutex, len(JobTypes)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("engine")
	}
	for _, t := range JobTypes {
		s.locks[t] = &sync.Mutex{}
	}

	s.validator = validate.New()
	s.pool = workerpool.NewPool(s.workerCount,
		workerpool.WithName("engine"),
		workerpool.WithLogger(s.logger.Named("pool")))
	s.tracker = job.NewTracker(store.Jobs(),
		job.WithClock(s.now),
		job.WithLogger(s.logger.Named("jobs")))

	simOpts := append([]similarity.Option{similarity.WithLogger(s.logger.Named("similarity"))}, s.similarityOpts...)
	engine, err := similarity.New(store.Templates(), simOpts...)
	if err != nil {
		return nil, fmt.Errorf("similarity engine: %w", err)
	}
	s.similarity = engine
	s.correlation = correlation.New(store.Sounds(), store.Templates())
	s.reports = report.NewBuilder(store.Sounds(), store.Reports(),
		report.WithTopN(s.reportTopN),
		report.WithClock(s.now),
		report.WithLogger(s.logger.Named("report")))

	s.sounds = batch.New[priority.Item, *extract.SoundDraft](s.batchOptions("sounds")...)
	s.templates = batch.New[priority.Item, *model.Template](s.batchOptions("templates")...)

	s.logger.Info(context.Background(), "engine ready",
		logger.Int("batchSize", s.batchSize),
		logger.Duration("interBatchDelay", s.interBatchDelay),
		logger.Int("workers", s.workerCount),
		logger.Float64("minSimilarity", s.minSimilarity),
	)
	return s, nil
}

func (s *Service) batchOptions(name string) []batch.Option {
	return []batch.Option{
		batch.WithName(name),
		batch.WithBatchSize(s.batchSize),
		batch.WithInterBatchDelay(s.interBatchDelay),
		batch.WithDelayFunc(s.delayFunc),
		batch.WithPool(s.pool),
		batch.WithLogger(s.logger.Named(name)),
	}
}

// track runs work as a job of jobType, holding the type's lock.
func (s *Service) track(ctx context.Context, jobType string, work job.Work) (*model.Job, error) {
	if !s.enter() {
		return nil, fmt.Errorf("%s: %w", jobType, ErrShuttingDown)
	}
	defer s.runs.Done()

	mu := s.locks[jobType]
	mu.Lock()
	defer mu.Unlock()
	return s.tracker.Run(ctx, jobNames[jobType], jobType, work)
}

func (s *Service) enter() bool {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	if s.closing {
		return false
	}
	s.runs.Add(1)
	return true
}

// Shutdown refuses new runs and waits until every run in flight has sealed
// its job, or until ctx is done. Callers cancel the runs' context first and
// close the store only after Shutdown returns.
func (s *Service) Shutdown(ctx context.Context) error {
	s.runsMu.Lock()
	s.closing = true
	s.runsMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info(ctx, "engine drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain engine: %w", ctx.Err())
	}
}

// Trigger runs one job of jobType. Video-consuming jobs fetch from the
// video source first.
func (s *Service) Trigger(ctx context.Context, jobType string) (*model.Job, error) {
	switch jobType {
	case JobExtractSounds:
		return s.track(ctx, jobType, func(ctx context.Context) (model.JobResult, error) {
			videos, err := s.fetch(ctx)
			if err != nil {
				return model.JobResult{}, err
			}
			return s.extractSounds(ctx, videos)
		})
	case JobAnalyzeTemplates:
		return s.track(ctx, jobType, func(ctx context.Context) (model.JobResult, error) {
			videos, err := s.fetch(ctx)
			if err != nil {
				return model.JobResult{}, err
			}
			return s.analyzeTemplates(ctx, videos)
		})
	case JobUpdateSoundMetrics:
		return s.UpdateSoundMetrics(ctx)
	case JobUpdateTemplateMetrics:
		return s.UpdateTemplateMetrics(ctx)
	case JobRefreshSimilarity:
		return s.RefreshSimilarity(ctx)
	case JobBuildReport:
		return s.BuildReport(ctx)
	case JobFullPass:
		return s.RunFull(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, jobType)
	}
}

// Start runs a full pass every interval until ctx is done. A failed pass is
// logged and the loop continues.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "periodic passes scheduled", logger.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "periodic passes stopped")
			return
		case <-ticker.C:
			if _, err := s.RunFull(ctx); err != nil {
				s.logger.Warn(ctx, "periodic pass failed", logger.Error(err))
			}
		}
	}
}

// FindSimilar returns up to limit templates most similar to id.
func (s *Service) FindSimilar(ctx context.Context, id string, limit int) ([]similarity.Match, error) {
	return s.similarity.FindSimilar(ctx, id, limit)
}

// Correlate ranks the templates using a sound by engagement lift.
func (s *Service) Correlate(ctx context.Context, soundID string) ([]correlation.Correlation, error) {
	return s.correlation.Correlate(ctx, soundID, nil)
}

// Sound returns a stored sound.
func (s *Service) Sound(ctx context.Context, id string) (*model.Sound, error) {
	return s.store.Sounds().Get(ctx, id)
}

// Template returns a stored template.
func (s *Service) Template(ctx context.Context, id string) (*model.Template, error) {
	return s.store.Templates().Get(ctx, id)
}

// LatestReport returns the most recent trend report.
func (s *Service) LatestReport(ctx context.Context) (*model.TrendReport, error) {
	return s.store.Reports().Latest(ctx)
}

// Report returns a trend report by id.
func (s *Service) Report(ctx context.Context, id string) (*model.TrendReport, error) {
	return s.store.Reports().Get(ctx, id)
}

// Job returns a job record.
func (s *Service) Job(ctx context.Context, id string) (*model.Job, error) {
	return s.store.Jobs().Get(ctx, id)
}

// Jobs lists job records newest first, optionally filtered by type.
func (s *Service) Jobs(ctx context.Context, jobType string, limit int) ([]*model.Job, error) {
	return s.store.Jobs().List(ctx, jobType, limit)
}

// Stats summarizes the store for monitoring.
type Stats struct {
	Sounds        int                 `json:"sounds"`
	Templates     int                 `json:"templates"`
	SoundsByStage map[model.Stage]int `json:"soundsByStage"`
	Workers       int                 `json:"workers"`
	BatchSize     int                 `json:"batchSize"`
	Goroutines    int                 `json:"goroutines"`
}

// Stats returns store counts and refreshes the system gauges.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st := Stats{
		SoundsByStage: make(map[model.Stage]int, len(model.Stages)),
		Workers:       s.pool.Size(),
		BatchSize:     s.batchSize,
		Goroutines:    runtime.NumGoroutine(),
	}
	var err error
	if st.Sounds, err = s.store.Sounds().Count(ctx); err != nil {
		return Stats{}, fmt.Errorf("count sounds: %w", err)
	}
	if st.Templates, err = s.store.Templates().Count(ctx); err != nil {
		return Stats{}, fmt.Errorf("count templates: %w", err)
	}
	for _, stage := range model.Stages {
		found, err := s.store.Sounds().QueryByField(ctx, model.FieldSoundStage, string(stage), 0)
		if err != nil {
			return Stats{}, fmt.Errorf("count %s sounds: %w", stage, err)
		}
		st.SoundsByStage[stage] = len(found)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(st.Goroutines)
	return st, nil
}

// StatsSnapshot returns Stats as an opaque value for the HTTP layer.
func (s *Service) StatsSnapshot(ctx context.Context) (any, error) {
	st, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return st, nil
}
