// Package source provides video source adapters.
package source

import (
	"context"
	"time"

	"github.com/okian/trendetl/internal/domain/model"
)

// Filter narrows a fetch. Zero values disable each bound.
type Filter struct {
	// Limit caps the number of returned videos.
	Limit int
	// Since drops videos created before it.
	Since time.Time
	// MinPlays drops videos with fewer plays.
	MinPlays float64
}

// VideoSource supplies raw scraped videos.
type VideoSource interface {
	Fetch(ctx context.Context, f Filter) ([]model.RawVideo, error)
}

// Apply returns the videos passing f, in input order.
func (f Filter) Apply(videos []model.RawVideo) []model.RawVideo {
	out := make([]model.RawVideo, 0, len(videos))
	for _, v := range videos {
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
		if !f.Since.IsZero() && !v.CreateTime.IsZero() && v.CreateTime.Before(f.Since) {
			continue
		}
		if f.MinPlays > 0 && v.Stats.Plays() < f.MinPlays {
			continue
		}
		out = append(out, v)
	}
	return out
}
