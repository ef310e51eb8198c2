// Package report assembles the immutable trend report at the end of a pass.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"
)

// DefaultTopN is the length of each ranked list.
const DefaultTopN = 10

// UnknownGenre labels sounds without a genre in the distribution.
const UnknownGenre = "unknown"

// SoundQuery reads ranked and filtered sounds.
type SoundQuery interface {
	QueryTopByMetric(ctx context.Context, metric string, limit int) ([]*model.Sound, error)
	QueryByField(ctx context.Context, field, value string, limit int) ([]*model.Sound, error)
}

// ReportWriter persists a report once.
type ReportWriter interface {
	Put(ctx context.Context, r *model.TrendReport) error
}

// Builder queries the store and writes one report per call. It never
// modifies sounds.
type Builder struct {
	sounds  SoundQuery
	reports ReportWriter
	topN    int
	now     func() time.Time
	logger  logger.Logger
}

// NewBuilder creates a builder.
func NewBuilder(sounds SoundQuery, reports ReportWriter, opts ...Option) *Builder {
	b := &Builder{sounds: sounds, reports: reports, topN: DefaultTopN, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	if b.topN < 1 {
		b.topN = DefaultTopN
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("report")
	}
	return b
}

// Build assembles and stores the report for date.
func (b *Builder) Build(ctx context.Context, date time.Time) (*model.TrendReport, error) {
	r := &model.TrendReport{
		ID:        uuid.NewString(),
		Date:      model.Day(date),
		CreatedAt: b.now(),
	}
	listed := make(map[string]*model.Sound)

	windows := []struct {
		metric string
		dst    *[]string
	}{
		{model.MetricSoundVelocity7d, &r.TopSounds.Daily},
		{model.MetricSoundVelocity14d, &r.TopSounds.Weekly},
		{model.MetricSoundVelocity30d, &r.TopSounds.Monthly},
	}
	for _, w := range windows {
		top, err := b.sounds.QueryTopByMetric(ctx, w.metric, b.topN)
		if err != nil {
			return nil, fmt.Errorf("top sounds by %s: %w", w.metric, err)
		}
		*w.dst = collect(top, listed)
	}

	stages := []struct {
		stage model.Stage
		dst   *[]string
	}{
		{model.StageEmerging, &r.EmergingSounds},
		{model.StagePeaking, &r.PeakingSounds},
		{model.StageDeclining, &r.DecliningTrends},
	}
	for _, s := range stages {
		found, err := b.sounds.QueryByField(ctx, model.FieldSoundStage, string(s.stage), b.topN)
		if err != nil {
			return nil, fmt.Errorf("sounds in stage %s: %w", s.stage, err)
		}
		*s.dst = collect(found, listed)
	}

	r.GenreDistribution = make(map[string]int, len(listed))
	for _, s := range listed {
		g := s.Genre
		if g == "" {
			g = UnknownGenre
		}
		r.GenreDistribution[g]++
	}

	if err := b.reports.Put(ctx, r); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	metrics.RecordReportBuilt()
	b.logger.Info(ctx, "trend report built",
		logger.String("report_id", r.ID),
		logger.String("date", r.Date),
		logger.Int("sounds", len(listed)),
	)
	return r, nil
}

func collect(sounds []*model.Sound, listed map[string]*model.Sound) []string {
	ids := make([]string, 0, len(sounds))
	for _, s := range sounds {
		ids = append(ids, s.ID)
		listed[s.ID] = s
	}
	return ids
}
