// Package seeding generates synthetic video corpora for the engine's file
// source and smoke tests a running engine against them.
package seeding

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/trendetl/pkg/logger"
)

// Run writes the corpus described by cfg and, when BaseURL is set, runs a
// full pass on the engine and verifies the resulting report.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting seeding run",
		logger.String("output", cfg.OutputFile),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("videos", cfg.Videos),
		logger.Duration("timeout", cfg.Timeout))

	// Step 1: Generate and save the corpus
	videos, err := generateVideos(ctx, cfg, stats)
	if err != nil {
		return stats, err
	}
	if err := saveVideos(ctx, cfg.OutputFile, videos); err != nil {
		return stats, fmt.Errorf("save videos: %w", err)
	}

	if cfg.BaseURL != "" {
		if err := smoke(ctx, cfg, stats); err != nil {
			return stats, err
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// smoke drives one full pass through the control API.
func smoke(ctx context.Context, cfg *Config, stats *Stats) error {
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 2: Check service health
	if err := client.health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 3: Run a full pass and wait for it
	j, err := client.fullPass(ctx)
	if err != nil {
		return fmt.Errorf("full pass failed: %w", err)
	}
	stats.JobID, stats.JobStatus = j.ID, string(j.Status)
	stats.Processed, stats.Failed, stats.Skipped = j.Result.Processed, j.Result.Failed, j.Result.Skipped
	if err := verifyJob(j); err != nil {
		return err
	}

	// Step 4: Verify the report
	r, err := client.latestReport(ctx)
	if err != nil {
		return fmt.Errorf("report retrieval failed: %w", err)
	}
	stats.ReportID = r.ID
	if err := verifyReport(ctx, cfg, client, r, stats); err != nil {
		return fmt.Errorf("report verification failed: %w", err)
	}

	logger.Get().Info(ctx, "engine smoke test passed",
		logger.String("job", j.ID),
		logger.String("report", r.ID))
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("videosGenerated", stats.VideosGenerated),
		logger.String("job", stats.JobID),
		logger.String("jobStatus", stats.JobStatus),
		logger.Int("processed", stats.Processed),
		logger.Int("failed", stats.Failed),
		logger.Int("skipped", stats.Skipped),
		logger.String("report", stats.ReportID),
		logger.Int("soundsChecked", stats.SoundsChecked),
		logger.Duration("duration", stats.Duration))
}
