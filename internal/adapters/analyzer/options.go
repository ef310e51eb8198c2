package analyzer

import (
	"time"

	"github.com/okian/trendetl/pkg/logger"
	"golang.org/x/time/rate"
)

// SimulatedOption configures a Simulated analyzer.
type SimulatedOption func(*Simulated)

// WithLatencyRange sets the simulated latency range. A zero range disables
// the delay.
func WithLatencyRange(minLatency, maxLatency time.Duration) SimulatedOption {
	return func(s *Simulated) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// ThrottledOption configures a Throttled analyzer.
type ThrottledOption func(*Throttled)

// WithRate sets the sustained calls per second and the burst size.
func WithRate(rps float64, burst int) ThrottledOption {
	return func(t *Throttled) {
		if rps > 0 && burst > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithTimeout bounds each wrapped call. Zero disables the bound.
func WithTimeout(d time.Duration) ThrottledOption {
	return func(t *Throttled) {
		if d >= 0 {
			t.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) ThrottledOption {
	return func(t *Throttled) {
		if l != nil {
			t.logger = l
		}
	}
}
