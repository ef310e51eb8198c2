package seeding

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// verifyJob checks that a full pass sealed as completed with every stage
// listed as an output.
func verifyJob(j *model.Job) error {
	if j.Status != model.JobCompleted {
		return fmt.Errorf("full pass %s ended %s: %s", j.ID, j.Status, j.FailureReason)
	}
	if len(j.Result.OutputIDs) != fullPassStages {
		return fmt.Errorf("full pass %s ran %d stages, want %d", j.ID, len(j.Result.OutputIDs), fullPassStages)
	}
	return nil
}

// verifyReport checks the report's internal consistency: every ranked
// sound resolves through the API and the genre distribution is non-empty.
func verifyReport(ctx context.Context, cfg *Config, client *HTTPClient, r *model.TrendReport, stats *Stats) error {
	if len(r.GenreDistribution) == 0 {
		return fmt.Errorf("report %s has no genre distribution", r.ID)
	}

	ids := r.TopSounds.Daily
	if len(ids) > maxSoundChecks {
		ids = ids[:maxSoundChecks]
	}

	var checked atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, id := range ids {
		g.Go(func() error {
			s, err := client.sound(gctx, id)
			if err != nil {
				return fmt.Errorf("ranked sound %s: %w", id, err)
			}
			if s.ID != id {
				return fmt.Errorf("ranked sound %s resolved to %s", id, s.ID)
			}
			checked.Add(1)
			if cfg.Verbose {
				logger.Get().Info(gctx, "ranked sound",
					logger.String("id", s.ID),
					logger.String("title", s.Title),
					logger.String("stage", string(s.Lifecycle.Stage)))
			}
			return nil
		})
	}
	err := g.Wait()
	stats.SoundsChecked = int(checked.Load())
	return err
}
