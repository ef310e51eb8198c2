package report

import (
	"time"

	"github.com/okian/trendetl/pkg/logger"
)

// Option configures a Builder.
type Option func(*Builder)

// WithTopN sets the length of each ranked list.
func WithTopN(n int) Option {
	return func(b *Builder) {
		b.topN = n
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}
