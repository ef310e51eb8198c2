package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	workerpool "github.com/okian/trendetl/internal/adapters/mq/worker"
	"github.com/okian/trendetl/internal/adapters/repository"
	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/job"
	"github.com/okian/trendetl/internal/domain/lifecycle"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/internal/domain/priority"
	"github.com/okian/trendetl/internal/domain/similarity"
	"github.com/okian/trendetl/internal/domain/velocity"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"
)

// ExtractSounds extracts and stores the sounds of videos as one job.
func (s *Service) ExtractSounds(ctx context.Context, videos []model.RawVideo) (*model.Job, error) {
	return s.track(ctx, JobExtractSounds, func(ctx context.Context) (model.JobResult, error) {
		return s.extractSounds(ctx, videos)
	})
}

// AnalyzeTemplates analyzes videos and stores their templates as one job.
func (s *Service) AnalyzeTemplates(ctx context.Context, videos []model.RawVideo) (*model.Job, error) {
	return s.track(ctx, JobAnalyzeTemplates, func(ctx context.Context) (model.JobResult, error) {
		return s.analyzeTemplates(ctx, videos)
	})
}

// UpdateSoundMetrics recomputes velocity, trend, peak and lifecycle for every
// stored sound.
func (s *Service) UpdateSoundMetrics(ctx context.Context) (*model.Job, error) {
	return s.track(ctx, JobUpdateSoundMetrics, s.updateSoundMetrics)
}

// UpdateTemplateMetrics recomputes growth metrics for every stored template.
func (s *Service) UpdateTemplateMetrics(ctx context.Context) (*model.Job, error) {
	return s.track(ctx, JobUpdateTemplateMetrics, s.updateTemplateMetrics)
}

// RefreshSimilarity rebuilds every template's similarity neighbourhood.
func (s *Service) RefreshSimilarity(ctx context.Context) (*model.Job, error) {
	return s.track(ctx, JobRefreshSimilarity, s.refreshSimilarity)
}

// BuildReport writes a trend report for today.
func (s *Service) BuildReport(ctx context.Context) (*model.Job, error) {
	return s.track(ctx, JobBuildReport, s.buildReport)
}

// RunFull fetches videos once and runs every stage in control-flow order,
// each as its own job. The full-pass job lists the stage job ids as its
// output and fails with the first failing stage.
func (s *Service) RunFull(ctx context.Context) (*model.Job, error) {
	return s.track(ctx, JobFullPass, func(ctx context.Context) (model.JobResult, error) {
		videos, err := s.fetch(ctx)
		if err != nil {
			return model.JobResult{}, err
		}

		stages := []struct {
			jobType string
			work    func(context.Context) (model.JobResult, error)
		}{
			{JobExtractSounds, func(ctx context.Context) (model.JobResult, error) { return s.extractSounds(ctx, videos) }},
			{JobAnalyzeTemplates, func(ctx context.Context) (model.JobResult, error) { return s.analyzeTemplates(ctx, videos) }},
			{JobUpdateSoundMetrics, s.updateSoundMetrics},
			{JobUpdateTemplateMetrics, s.updateTemplateMetrics},
			{JobRefreshSimilarity, s.refreshSimilarity},
			{JobBuildReport, s.buildReport},
		}

		var total model.JobResult
		for _, st := range stages {
			j, err := s.track(ctx, st.jobType, st.work)
			if j != nil {
				total.Processed += j.Result.Processed
				total.Failed += j.Result.Failed
				total.Skipped += j.Result.Skipped
				total.OutputIDs = append(total.OutputIDs, j.ID)
				job.Publish(ctx, total)
			}
			if err != nil {
				return total, fmt.Errorf("stage %s: %w", st.jobType, err)
			}
		}
		return total, nil
	})
}

// fetch reads the corpus. An unreadable or empty source aborts the job.
func (s *Service) fetch(ctx context.Context) ([]model.RawVideo, error) {
	videos, err := s.source.Fetch(ctx, s.filter)
	if err != nil {
		return nil, etlerr.Fatal("engine.fetch", err)
	}
	if len(videos) == 0 {
		return nil, etlerr.Fatal("engine.fetch", ErrNoVideos)
	}
	return videos, nil
}

// admit validates raw videos and prioritizes the valid ones. Rejected videos
// are recorded as skipped in the returned result.
func (s *Service) admit(ctx context.Context, op string, videos []model.RawVideo) ([]priority.Item, model.JobResult, error) {
	var rejected model.JobResult
	if len(videos) == 0 {
		return nil, rejected, etlerr.Fatal(op, ErrNoVideos)
	}

	valid := make([]*model.RawVideo, 0, len(videos))
	for i := range videos {
		v := &videos[i]
		if err := s.validator.Video(v); err != nil {
			metrics.RecordValidationRejected("video")
			rejected.Skipped++
			rejected.Reasons = append(rejected.Reasons, v.ID+": "+etlerr.ReasonOf(err))
			continue
		}
		valid = append(valid, v)
	}

	trending, err := s.trendingIDs(ctx)
	if err != nil {
		return nil, rejected, etlerr.Fatal(op, err)
	}
	items := priority.Prioritize(valid, trending)

	s.logger.Debug(ctx, "videos admitted",
		logger.String("op", op),
		logger.Int("valid", len(valid)),
		logger.Int("rejected", rejected.Skipped),
	)
	return items, rejected, nil
}

func (s *Service) trendingIDs(ctx context.Context) (map[string]struct{}, error) {
	if s.trendingTopN == 0 {
		return map[string]struct{}{}, nil
	}
	top, err := s.store.Templates().QueryTopByMetric(ctx, model.MetricTemplateVelocity, s.trendingTopN)
	if err != nil {
		return nil, fmt.Errorf("trending templates: %w", err)
	}
	ids := make([]string, 0, len(top))
	for _, t := range top {
		if t.TrendData.VelocityScore > 0 {
			ids = append(ids, t.ID)
		}
	}
	return priority.IDSet(ids), nil
}

func (s *Service) extractSounds(ctx context.Context, videos []model.RawVideo) (model.JobResult, error) {
	items, result, err := s.admit(ctx, "engine.extract_sounds", videos)
	if err != nil {
		return result, err
	}
	sum, err := s.sounds.Run(ctx, items, &soundHandler{svc: s})
	result.Merge(sum.Result())
	return result, err
}

func (s *Service) analyzeTemplates(ctx context.Context, videos []model.RawVideo) (model.JobResult, error) {
	items, result, err := s.admit(ctx, "engine.analyze_templates", videos)
	if err != nil {
		return result, err
	}
	sum, err := s.templates.Run(ctx, items, &templateHandler{svc: s})
	result.Merge(sum.Result())
	return result, err
}

// refresh applies patch to every id on the worker pool and tallies the
// outcomes. Missing entities are skipped.
func refresh[E any](ctx context.Context, pool *workerpool.Pool, store repository.EntityStore[E], ids []string, patch func(E) error) model.JobResult {
	results := workerpool.Map(ctx, pool, ids, func(ctx context.Context, id string) (E, error) {
		return store.Update(ctx, id, patch)
	})

	var out model.JobResult
	for i, r := range results {
		switch {
		case r.Err == nil:
			out.Processed++
			out.OutputIDs = append(out.OutputIDs, ids[i])
		case errors.Is(r.Err, repository.ErrNotFound):
			out.Skipped++
			out.Reasons = append(out.Reasons, ids[i]+": "+etlerr.ReasonOf(r.Err))
		default:
			out.Failed++
			out.Reasons = append(out.Reasons, ids[i]+": "+etlerr.ReasonOf(r.Err))
		}
	}
	return out
}

func allIDs[E any](ctx context.Context, store repository.EntityStore[E], metric string, id func(E) string) ([]string, error) {
	all, err := store.QueryTopByMetric(ctx, metric, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for _, e := range all {
		ids = append(ids, id(e))
	}
	return ids, nil
}

// Metric refreshes leave UpdatedAt alone: it tracks extracted content, and
// the similarity cache is keyed on it.
func (s *Service) updateSoundMetrics(ctx context.Context) (model.JobResult, error) {
	const op = "engine.update_sound_metrics"
	ids, err := allIDs(ctx, s.store.Sounds(), model.MetricSoundUsage, func(x *model.Sound) string { return x.ID })
	if err != nil {
		return model.JobResult{}, etlerr.Fatal(op, err)
	}

	result := refresh(ctx, s.pool, s.store.Sounds(), ids, func(snd *model.Sound) error {
		est := velocity.Estimate(snd.UsageHistory)
		if !est.OK {
			// One dated point gives no velocity; the stage stays as it was.
			velocity.ApplyUsage(snd, est)
			return nil
		}
		velocity.Apply(snd, est)
		snd.Lifecycle = lifecycle.Of(snd, est.LatestDate, est.Length)
		return nil
	})

	for _, stage := range model.Stages {
		found, err := s.store.Sounds().QueryByField(ctx, model.FieldSoundStage, string(stage), 0)
		if err != nil {
			return result, etlerr.Fatal(op, err)
		}
		metrics.UpdateSoundsByStage(string(stage), len(found))
	}
	return result, ctx.Err()
}

func (s *Service) updateTemplateMetrics(ctx context.Context) (model.JobResult, error) {
	const op = "engine.update_template_metrics"
	ids, err := allIDs(ctx, s.store.Templates(), model.MetricTemplateVelocity, func(x *model.Template) string { return x.ID })
	if err != nil {
		return model.JobResult{}, etlerr.Fatal(op, err)
	}

	result := refresh(ctx, s.pool, s.store.Templates(), ids, func(t *model.Template) error {
		applyTemplateGrowth(t)
		return nil
	})
	return result, ctx.Err()
}

// applyTemplateGrowth derives growth metrics from daily views. GrowthRate is
// relative to the 7-day base and zero without one.
func applyTemplateGrowth(t *model.Template) {
	h := t.TrendData.DailyViews
	est := velocity.Estimate(h)
	t.TrendData.WeeklyGrowth = est.Velocity7d
	t.TrendData.DailyGrowth = velocity.DailyGrowth(h)
	t.TrendData.GrowthRate = 0
	if base, ok := velocity.BaseValue(h, velocity.Window7); ok && base > 0 {
		t.TrendData.GrowthRate = float64(est.Latest-base) / float64(base)
	}
	t.TrendData.VelocityScore = math.Min(100, math.Max(0, t.TrendData.GrowthRate*100))
}

func (s *Service) refreshSimilarity(ctx context.Context) (model.JobResult, error) {
	const op = "engine.refresh_similarity"
	all, err := s.store.Templates().QueryTopByMetric(ctx, model.MetricTemplateVelocity, 0)
	if err != nil {
		return model.JobResult{}, etlerr.Fatal(op, err)
	}
	// Templates past the candidate cap were not compared; their neighbours
	// are kept from the last refresh that reached them.
	candidates := s.similarity.Candidates(all)
	pairs := s.similarity.FindAllPairs(ctx, candidates, s.minSimilarity, s.maxPairs)
	neighbours := similarity.Neighbours(pairs)

	ids := make([]string, 0, len(candidates))
	for _, t := range candidates {
		ids = append(ids, t.ID)
	}
	result := refresh(ctx, s.pool, s.store.Templates(), ids, func(t *model.Template) error {
		t.TrendData.SimilarTemplates = append([]string{}, neighbours[t.ID]...)
		return nil
	})

	s.logger.Info(ctx, "similarity refreshed",
		logger.Int("templates", len(all)),
		logger.Int("compared", len(candidates)),
		logger.Int("pairs", len(pairs)),
		logger.Int("withNeighbours", len(neighbours)),
	)
	return result, ctx.Err()
}

func (s *Service) buildReport(ctx context.Context) (model.JobResult, error) {
	r, err := s.reports.Build(ctx, s.now())
	if err != nil {
		return model.JobResult{Failed: 1, Reasons: []string{etlerr.ReasonOf(err)}}, etlerr.Fatal("engine.build_report", err)
	}
	return model.JobResult{Processed: 1, OutputIDs: []string{r.ID}}, nil
}
