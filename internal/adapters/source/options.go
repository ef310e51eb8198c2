package source

import (
	"time"

	"github.com/okian/trendetl/pkg/logger"
)

// FileOption configures a FileSource.
type FileOption func(*FileSource)

// WithFileLogger sets a custom logger.
func WithFileLogger(l logger.Logger) FileOption {
	return func(s *FileSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithCount sets the number of generated videos.
func WithCount(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.count = n
		}
	}
}

// WithSounds sets the size of the shared sound pool.
func WithSounds(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.sounds = n
		}
	}
}

// WithSeed sets the random seed.
func WithSeed(seed int64) GeneratorOption {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithMalformedPercent drops the play count from roughly pct percent of
// videos so validation paths are exercised.
func WithMalformedPercent(pct int) GeneratorOption {
	return func(g *Generator) {
		if pct >= 0 && pct <= 100 {
			g.malformedPct = pct
		}
	}
}

// WithClock sets the time source used for creation times.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithGeneratorLogger sets a custom logger.
func WithGeneratorLogger(l logger.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}
