// Package worker runs bounded fan-out over a chunk of items.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"
)

// defaultWorkerMultiplier scales runtime.NumCPU() when no size is given.
const defaultWorkerMultiplier = 4

// ErrPanic marks an item whose handler panicked.
var ErrPanic = errors.New("worker: handler panicked")

// Result is the outcome of one item, stored at the item's input index.
type Result[R any] struct {
	Value R
	Err   error
}

// Pool caps how many items of a chunk are processed concurrently.
// A Pool holds no goroutines between calls and is safe to share.
type Pool struct {
	size   int
	name   string
	logger logger.Logger
}

// NewPool creates a pool running at most size handlers at once.
func NewPool(size int, opts ...Option) *Pool {
	if size < 1 {
		size = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{size: size, name: "worker-pool"}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named(p.name)
	}
	return p
}

// Size returns the concurrency cap.
func (p *Pool) Size() int { return p.size }

// Map runs fn over items with at most p.Size() in flight and returns one
// Result per item in input order. A failing or panicking item never cancels
// its siblings; its error is returned in its own slot.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(p.size)
	for i, item := range items {
		g.Go(func() error {
			metrics.AddActiveWorkers(1)
			defer metrics.AddActiveWorkers(-1)

			start := time.Now()
			results[i] = invoke(ctx, p, item, fn)
			metrics.RecordWorkerItemLatency(float64(time.Since(start).Milliseconds()))
			// Siblings keep running whatever happens to this item.
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// invoke calls fn and converts a panic into an ErrPanic result.
func invoke[T, R any](ctx context.Context, p *Pool, item T, fn func(context.Context, T) (R, error)) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerPanic()
			p.logger.Error(ctx, "handler panicked",
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			res = Result[R]{Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()
	v, err := fn(ctx, item)
	return Result[R]{Value: v, Err: err}
}
