package batch

import (
	"time"

	"github.com/okian/trendetl/internal/adapters/mq/worker"
	"github.com/okian/trendetl/pkg/logger"
)

type settings struct {
	name      string
	batchSize int
	delay     time.Duration
	delayFunc DelayFunc
	pool      *worker.Pool
	logger    logger.Logger
}

// Option configures a Scheduler.
type Option func(*settings)

// WithName sets the pipeline name used for metrics and logs.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithBatchSize sets the chunk size.
func WithBatchSize(n int) Option {
	return func(s *settings) {
		s.batchSize = n
	}
}

// WithInterBatchDelay sets the pause between chunks.
func WithInterBatchDelay(d time.Duration) Option {
	return func(s *settings) {
		s.delay = d
	}
}

// WithDelayFunc replaces the wait between chunks.
func WithDelayFunc(fn DelayFunc) Option {
	return func(s *settings) {
		if fn != nil {
			s.delayFunc = fn
		}
	}
}

// WithPool sets the fan-out pool used within a chunk.
func WithPool(p *worker.Pool) Option {
	return func(s *settings) {
		if p != nil {
			s.pool = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
