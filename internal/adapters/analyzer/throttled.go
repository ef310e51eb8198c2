package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"
	"golang.org/x/time/rate"
)

// Default throttling configuration.
const (
	DefaultRPS     = 5
	DefaultBurst   = 5
	DefaultTimeout = 30 * time.Second
)

// Throttled rate-limits calls to another analyzer and bounds each call with
// a timeout. Failed calls surface as transient errors for the caller to
// record per item.
type Throttled struct {
	next    Analyzer
	limiter *rate.Limiter
	timeout time.Duration
	logger  logger.Logger
}

// NewThrottled wraps next.
func NewThrottled(next Analyzer, opts ...ThrottledOption) *Throttled {
	t := &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(DefaultRPS), DefaultBurst),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("analyzer")
	}
	return t
}

// Analyze waits for a token, then calls the wrapped analyzer under the
// per-call timeout.
func (t *Throttled) Analyze(ctx context.Context, v model.RawVideo) (Response, error) {
	const op = "analyzer.analyze"

	waitStart := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		metrics.RecordAnalyzerError("throttle")
		return nil, etlerr.Transient(op, fmt.Errorf("rate limiter: %w", err))
	}
	if waited := time.Since(waitStart); waited > time.Millisecond {
		metrics.RecordAnalyzerThrottle(float64(waited.Milliseconds()))
	}

	callCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := t.next.Analyze(callCtx, v)
	metrics.RecordAnalyzerLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		metrics.RecordAnalyzerError(reason)
		t.logger.Warn(ctx, "analyzer call failed",
			logger.String("video_id", v.ID),
			logger.String("reason", reason),
			logger.Error(err))
		return nil, etlerr.Transient(op, err)
	}
	if resp == nil {
		resp = Response{}
	}
	return resp, nil
}
