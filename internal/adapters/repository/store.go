// Package repository defines the engine's persistent store contracts and an
// in-memory implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/trendetl/internal/domain/model"
)

// EntityStore reads and writes one entity kind keyed by id.
type EntityStore[E any] interface {
	// Get returns a copy of the entity. Returns ErrNotFound if unknown.
	Get(ctx context.Context, id string) (E, error)

	// Put inserts or replaces the entity.
	Put(ctx context.Context, e E) error

	// Update applies patch to the stored entity under the store's lock and
	// persists the result. A patch error aborts the update unchanged.
	Update(ctx context.Context, id string, patch func(E) error) (E, error)

	// QueryByField returns entities whose field equals value, ordered by id.
	// A limit of zero or less returns all matches.
	QueryByField(ctx context.Context, field, value string, limit int) ([]E, error)

	// QueryTopByMetric returns entities ordered by metric desc, then id asc.
	// A limit of zero or less returns all entities.
	QueryTopByMetric(ctx context.Context, metric string, limit int) ([]E, error)

	// Count returns the number of stored entities.
	Count(ctx context.Context) (int, error)
}

// SoundStore stores sounds.
type SoundStore = EntityStore[*model.Sound]

// TemplateStore stores templates.
type TemplateStore = EntityStore[*model.Template]

// ReportStore stores immutable trend reports.
type ReportStore interface {
	// Put stores a new report. Returns ErrAlreadyExists for a known id.
	Put(ctx context.Context, r *model.TrendReport) error
	Get(ctx context.Context, id string) (*model.TrendReport, error)
	// Latest returns the most recently created report.
	Latest(ctx context.Context) (*model.TrendReport, error)
}

// JobStore stores job records.
type JobStore interface {
	Create(ctx context.Context, j *model.Job) error
	// Seal moves a running job to a terminal status. Returns ErrJobSealed
	// when the job is not running.
	Seal(ctx context.Context, id string, status model.JobStatus, result model.JobResult, reason string, end time.Time) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	// List returns jobs newest first, optionally filtered by type.
	List(ctx context.Context, jobType string, limit int) ([]*model.Job, error)
}

// Store groups the engine's stores.
type Store interface {
	Sounds() SoundStore
	Templates() TemplateStore
	Reports() ReportStore
	Jobs() JobStore
	Close() error
}
