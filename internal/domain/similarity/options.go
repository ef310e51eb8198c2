package similarity

import "github.com/okian/trendetl/pkg/logger"

// Option configures an Engine.
type Option func(e *Engine, cacheSize *int)

// WithComparator replaces the default FeatureComparator.
func WithComparator(c Comparator) Option {
	return func(e *Engine, _ *int) {
		if c != nil {
			e.cmp = c
		}
	}
}

// WithCandidateCap bounds the candidate set of a scan.
func WithCandidateCap(n int) Option {
	return func(e *Engine, _ *int) {
		e.candidateCap = n
	}
}

// WithCacheSize sets the number of memoized pair scores.
func WithCacheSize(n int) Option {
	return func(_ *Engine, size *int) {
		*size = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine, _ *int) {
		if l != nil {
			e.logger = l
		}
	}
}
