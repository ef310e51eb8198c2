package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/metrics"
)

// schema describes how a table reads its entity kind.
type schema[E any] struct {
	name   string
	id     func(E) string
	clone  func(E) E
	field  func(E, string) (string, bool)
	metric func(E, string) (float64, bool)
	// fields lists the queryable fields; metrics the names kept in rank
	// indexes.
	fields  []string
	metrics []string
}

// table is a lock-guarded map with one rank index per metric.
type table[E any] struct {
	mu      sync.RWMutex
	s       schema[E]
	rows    map[string]E
	indexes map[string]*rankIndex
}

func newTable[E any](s schema[E]) *table[E] {
	t := &table[E]{s: s, rows: make(map[string]E), indexes: make(map[string]*rankIndex, len(s.metrics))}
	for _, m := range s.metrics {
		t.indexes[m] = newRankIndex()
	}
	return t
}

// observe starts timing op; call the returned func on exit with the
// operation's error.
func observe(op string, err *error) func() {
	start := time.Now()
	return func() {
		metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
		if *err != nil {
			metrics.RecordStoreError(op)
		}
	}
}

// Get implements EntityStore.
func (t *table[E]) Get(_ context.Context, id string) (e E, err error) {
	defer observe(t.s.name+".get", &err)()

	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		return e, fmt.Errorf("%s %q: %w", t.s.name, id, ErrNotFound)
	}
	return t.s.clone(row), nil
}

// Put implements EntityStore.
func (t *table[E]) Put(_ context.Context, e E) (err error) {
	defer observe(t.s.name+".put", &err)()

	id := t.s.id(e)
	if id == "" {
		return fmt.Errorf("%s without id: %w", t.s.name, ErrInvalidEntity)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store(id, t.s.clone(e))
	return nil
}

// store writes row and refreshes its index entries. Caller holds the lock.
func (t *table[E]) store(id string, row E) {
	t.rows[id] = row
	for m, idx := range t.indexes {
		v, _ := t.s.metric(row, m)
		idx.set(id, v)
	}
}

// Update implements EntityStore.
func (t *table[E]) Update(_ context.Context, id string, patch func(E) error) (e E, err error) {
	defer observe(t.s.name+".update", &err)()

	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return e, fmt.Errorf("%s %q: %w", t.s.name, id, ErrNotFound)
	}
	work := t.s.clone(row)
	if err := patch(work); err != nil {
		return e, err
	}
	if t.s.id(work) != id {
		return e, fmt.Errorf("%s %q: patch changed id: %w", t.s.name, id, ErrInvalidEntity)
	}
	t.store(id, work)
	return t.s.clone(work), nil
}

// QueryByField implements EntityStore.
func (t *table[E]) QueryByField(_ context.Context, field, value string, limit int) (out []E, err error) {
	defer observe(t.s.name+".query_field", &err)()

	if !slices.Contains(t.s.fields, field) {
		return nil, fmt.Errorf("%s field %q: %w", t.s.name, field, ErrUnknownField)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0)
	for id, row := range t.rows {
		if v, _ := t.s.field(row, field); v == value {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out = make([]E, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.s.clone(t.rows[id]))
	}
	return out, nil
}

// QueryTopByMetric implements EntityStore.
func (t *table[E]) QueryTopByMetric(_ context.Context, metric string, limit int) (out []E, err error) {
	defer observe(t.s.name+".query_top", &err)()

	idx, ok := t.indexes[metric]
	if !ok {
		return nil, fmt.Errorf("%s metric %q: %w", t.s.name, metric, ErrUnknownField)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := idx.top(limit)
	out = make([]E, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.s.clone(t.rows[id]))
	}
	return out, nil
}

// Count implements EntityStore.
func (t *table[E]) Count(context.Context) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows), nil
}

type memoryReports struct {
	mu    sync.RWMutex
	byID  map[string]*model.TrendReport
	order []string
}

// Put implements ReportStore.
func (r *memoryReports) Put(_ context.Context, rep *model.TrendReport) (err error) {
	defer observe("reports.put", &err)()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[rep.ID]; ok {
		return fmt.Errorf("report %q: %w", rep.ID, ErrAlreadyExists)
	}
	r.byID[rep.ID] = cloneReport(rep)
	r.order = append(r.order, rep.ID)
	return nil
}

// Get implements ReportStore.
func (r *memoryReports) Get(_ context.Context, id string) (*model.TrendReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("report %q: %w", id, ErrNotFound)
	}
	return cloneReport(rep), nil
}

// Latest implements ReportStore. Equal creation times fall back to insertion
// order.
func (r *memoryReports) Latest(context.Context) (*model.TrendReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *model.TrendReport
	for _, id := range r.order {
		rep := r.byID[id]
		if latest == nil || !rep.CreatedAt.Before(latest.CreatedAt) {
			latest = rep
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("latest report: %w", ErrNotFound)
	}
	return cloneReport(latest), nil
}

type memoryJobs struct {
	mu    sync.RWMutex
	byID  map[string]*model.Job
	order []string
}

// Create implements JobStore.
func (j *memoryJobs) Create(_ context.Context, job *model.Job) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.byID[job.ID]; ok {
		return fmt.Errorf("job %q: %w", job.ID, ErrAlreadyExists)
	}
	j.byID[job.ID] = job.Clone()
	j.order = append(j.order, job.ID)
	return nil
}

// Seal implements JobStore.
func (j *memoryJobs) Seal(_ context.Context, id string, status model.JobStatus, result model.JobResult, reason string, end time.Time) (*model.Job, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("seal job %q as %s: %w", id, status, ErrInvalidEntity)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.byID[id]
	if !ok {
		return nil, fmt.Errorf("job %q: %w", id, ErrNotFound)
	}
	if job.Status != model.JobRunning {
		return nil, fmt.Errorf("job %q is %s: %w", id, job.Status, ErrJobSealed)
	}
	job.Status = status
	job.Result = result
	job.FailureReason = reason
	job.EndTime = &end
	return job.Clone(), nil
}

// Get implements JobStore.
func (j *memoryJobs) Get(_ context.Context, id string) (*model.Job, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job, ok := j.byID[id]
	if !ok {
		return nil, fmt.Errorf("job %q: %w", id, ErrNotFound)
	}
	return job.Clone(), nil
}

// List implements JobStore.
func (j *memoryJobs) List(_ context.Context, jobType string, limit int) ([]*model.Job, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]*model.Job, 0, len(j.order))
	for _, id := range slices.Backward(j.order) {
		job := j.byID[id]
		if jobType != "" && job.Type != jobType {
			continue
		}
		out = append(out, job.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Memory implements Store in process memory.
type Memory struct {
	sounds    *table[*model.Sound]
	templates *table[*model.Template]
	reports   *memoryReports
	jobs      *memoryJobs
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sounds: newTable(schema[*model.Sound]{
			name:    "sounds",
			id:      func(s *model.Sound) string { return s.ID },
			clone:   (*model.Sound).Clone,
			field:   SoundField,
			metric:  SoundMetric,
			fields:  SoundFields,
			metrics: SoundMetrics,
		}),
		templates: newTable(schema[*model.Template]{
			name:    "templates",
			id:      func(t *model.Template) string { return t.ID },
			clone:   (*model.Template).Clone,
			field:   TemplateField,
			metric:  TemplateMetric,
			fields:  TemplateFields,
			metrics: TemplateMetrics,
		}),
		reports: &memoryReports{byID: make(map[string]*model.TrendReport)},
		jobs:    &memoryJobs{byID: make(map[string]*model.Job)},
	}
}

// Sounds implements Store.
func (m *Memory) Sounds() SoundStore { return m.sounds }

// Templates implements Store.
func (m *Memory) Templates() TemplateStore { return m.templates }

// Reports implements Store.
func (m *Memory) Reports() ReportStore { return m.reports }

// Jobs implements Store.
func (m *Memory) Jobs() JobStore { return m.jobs }

// Close implements Store.
func (m *Memory) Close() error { return nil }

func cloneReport(r *model.TrendReport) *model.TrendReport {
	c := *r
	c.TopSounds.Daily = slices.Clone(r.TopSounds.Daily)
	c.TopSounds.Weekly = slices.Clone(r.TopSounds.Weekly)
	c.TopSounds.Monthly = slices.Clone(r.TopSounds.Monthly)
	c.EmergingSounds = slices.Clone(r.EmergingSounds)
	c.PeakingSounds = slices.Clone(r.PeakingSounds)
	c.DecliningTrends = slices.Clone(r.DecliningTrends)
	c.GenreDistribution = maps.Clone(r.GenreDistribution)
	return &c
}
