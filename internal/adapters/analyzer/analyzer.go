// Package analyzer provides AI content analyzer adapters. The analyzer's
// response is an opaque decoded payload; shaping it into a typed analysis is
// the sanitizer's job.
package analyzer

import (
	"context"

	"github.com/okian/trendetl/internal/domain/model"
)

// Response is the decoded analyzer payload.
type Response = map[string]any

// Analyzer analyzes the content structure of one video.
type Analyzer interface {
	// Analyze returns the raw analysis payload, honoring ctx for
	// cancellation and deadlines.
	Analyze(ctx context.Context, v model.RawVideo) (Response, error)
}

// Func adapts a function to the Analyzer interface.
type Func func(ctx context.Context, v model.RawVideo) (Response, error)

// Analyze calls f.
func (f Func) Analyze(ctx context.Context, v model.RawVideo) (Response, error) {
	return f(ctx, v)
}
