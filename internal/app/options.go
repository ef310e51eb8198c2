package service

import (
	"time"

	"github.com/okian/trendetl/internal/adapters/source"
	"github.com/okian/trendetl/internal/domain/batch"
	"github.com/okian/trendetl/internal/domain/similarity"
	"github.com/okian/trendetl/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBatchSize sets the number of items per chunk.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithInterBatchDelay sets the pause between chunks.
func WithInterBatchDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.interBatchDelay = d
		}
	}
}

// WithDelayFunc replaces the wait between chunks. Tests use it to observe
// delays without sleeping.
func WithDelayFunc(fn batch.DelayFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.delayFunc = fn
		}
	}
}

// WithWorkerCount sets the fan-out bound within a chunk.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithSimilarity sets the pair threshold and the number of pairs kept by a
// corpus-wide refresh.
func WithSimilarity(minScore float64, maxResults int) Option {
	return func(s *Service) {
		if minScore >= 0 && minScore <= 1 {
			s.minSimilarity = minScore
		}
		if maxResults >= 0 {
			s.maxPairs = maxResults
		}
	}
}

// WithSimilarityOptions passes options to the similarity engine.
func WithSimilarityOptions(opts ...similarity.Option) Option {
	return func(s *Service) {
		s.similarityOpts = append(s.similarityOpts, opts...)
	}
}

// WithReportTopN sets the length of each ranked report list.
func WithReportTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reportTopN = n
		}
	}
}

// WithTrendingTopN sets how many top templates count as trending when
// prioritizing videos.
func WithTrendingTopN(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.trendingTopN = n
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFetchFilter sets the filter applied when fetching from the video
// source.
func WithFetchFilter(f source.Filter) Option {
	return func(s *Service) {
		s.filter = f
	}
}
