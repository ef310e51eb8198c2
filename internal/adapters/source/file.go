package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"
)

// FileSource reads a JSON array of scraped videos from disk. The file is
// read on every fetch so a refreshed scrape is picked up without restart.
type FileSource struct {
	path   string
	logger logger.Logger
}

// NewFileSource creates a source backed by path.
func NewFileSource(path string, opts ...FileOption) *FileSource {
	s := &FileSource{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("source")
	}
	return s
}

// Fetch decodes the file and applies f. The file must hold a JSON array;
// records within it are decoded one by one and a record that does not decode
// is dropped and counted as rejected.
func (s *FileSource) Fetch(ctx context.Context, f Filter) ([]model.RawVideo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, s.path, err)
	}

	videos := make([]model.RawVideo, 0, len(records))
	for i, rec := range records {
		var v model.RawVideo
		if err := json.Unmarshal(rec, &v); err != nil {
			metrics.RecordValidationRejected("video")
			s.logger.Warn(ctx, "dropping undecodable video",
				logger.String("path", s.path),
				logger.Int("index", i),
				logger.Error(err))
			continue
		}
		videos = append(videos, v)
	}

	out := f.Apply(videos)
	metrics.RecordSourceVideos(len(out))
	s.logger.Info(ctx, "videos fetched",
		logger.String("path", s.path),
		logger.Int("records", len(records)),
		logger.Int("decoded", len(videos)),
		logger.Int("returned", len(out)))
	return out, nil
}
