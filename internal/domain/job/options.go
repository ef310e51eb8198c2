package job

import (
	"time"

	"github.com/okian/trendetl/pkg/logger"
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDGenerator sets the job id source.
func WithIDGenerator(fn func() string) Option {
	return func(t *Tracker) {
		if fn != nil {
			t.newID = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}
