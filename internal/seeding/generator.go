package seeding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/trendetl/internal/adapters/source"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"
)

// generateVideos builds the synthetic corpus described by cfg.
func generateVideos(ctx context.Context, cfg *Config, stats *Stats) ([]model.RawVideo, error) {
	logger.Get().Info(ctx, "generating videos",
		logger.Int("videos", cfg.Videos),
		logger.Int("sounds", cfg.Sounds),
		logger.Int64("seed", cfg.Seed))

	gen := source.NewGenerator(
		source.WithCount(cfg.Videos),
		source.WithSounds(cfg.Sounds),
		source.WithSeed(cfg.Seed),
		source.WithMalformedPercent(cfg.MalformedPercent),
		source.WithGeneratorLogger(logger.Get().Named("generator")),
	)
	videos, err := gen.Fetch(ctx, source.Filter{})
	if err != nil {
		return nil, fmt.Errorf("generate videos: %w", err)
	}
	stats.VideosGenerated = len(videos)
	return videos, nil
}

// saveVideos writes videos as an indented JSON array. The file is written
// next to its destination and renamed so readers never see a partial corpus.
func saveVideos(ctx context.Context, path string, videos []model.RawVideo) error {
	if len(videos) == 0 {
		return fmt.Errorf("no videos to save")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal videos: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write videos: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move videos into place: %w", err)
	}

	logger.Get().Info(ctx, "videos saved to file",
		logger.String("filename", path),
		logger.Int("count", len(videos)))
	return nil
}
