// Package correlation measures how a sound performs on each template
// relative to the template's category.
package correlation

import (
	"context"
	"errors"
	"slices"

	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/model"
)

// SoundReader loads sounds.
type SoundReader interface {
	Get(ctx context.Context, id string) (*model.Sound, error)
}

// TemplateReader loads templates and their category peers.
type TemplateReader interface {
	Get(ctx context.Context, id string) (*model.Template, error)
	QueryByField(ctx context.Context, field, value string, limit int) ([]*model.Template, error)
}

// Correlation is one ranked related template.
type Correlation struct {
	RelatedID        string  `json:"relatedId"`
	CorrelationScore float64 `json:"correlationScore"`
	EngagementLift   float64 `json:"engagementLift"`
}

// Analyzer computes sound-to-template correlations.
type Analyzer struct {
	sounds    SoundReader
	templates TemplateReader
}

// New creates an analyzer.
func New(sounds SoundReader, templates TemplateReader) *Analyzer {
	return &Analyzer{sounds: sounds, templates: templates}
}

// Correlate ranks templateIDs by how much the sound lifts their engagement
// above their category average. With no ids the sound's own template usage
// is used. Templates that no longer exist are ignored.
func (a *Analyzer) Correlate(ctx context.Context, soundID string, templateIDs []string) ([]Correlation, error) {
	sound, err := a.sounds.Get(ctx, soundID)
	if err != nil {
		return nil, err
	}
	if len(templateIDs) == 0 {
		for _, u := range sound.TemplateUsage {
			templateIDs = append(templateIDs, u.TemplateID)
		}
	}

	averages := make(map[string]float64)
	out := make([]Correlation, 0, len(templateIDs))
	for _, id := range templateIDs {
		tpl, err := a.templates.Get(ctx, id)
		if errors.Is(err, etlerr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		avg, ok := averages[tpl.Category]
		if !ok {
			avg, err = a.categoryAverage(ctx, tpl.Category)
			if err != nil {
				return nil, err
			}
			averages[tpl.Category] = avg
		}

		engagement := tpl.Engagement
		if u, ok := sound.Usage(id); ok {
			engagement = u.AverageEngagement
		}
		lift := Lift(engagement, avg)
		out = append(out, Correlation{RelatedID: id, CorrelationScore: Score(lift), EngagementLift: lift})
	}

	slices.SortStableFunc(out, func(x, y Correlation) int {
		switch {
		case x.CorrelationScore > y.CorrelationScore:
			return -1
		case x.CorrelationScore < y.CorrelationScore:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

func (a *Analyzer) categoryAverage(ctx context.Context, category string) (float64, error) {
	peers, err := a.templates.QueryByField(ctx, model.FieldTemplateCat, category, 0)
	if err != nil {
		return 0, err
	}
	if len(peers) == 0 {
		return 0, nil
	}
	var sum float64
	for _, p := range peers {
		sum += p.Engagement
	}
	return sum / float64(len(peers)), nil
}

// Lift is engagement/average - 1, or 0 when average is not positive.
func Lift(engagement, average float64) float64 {
	if average <= 0 {
		return 0
	}
	return engagement/average - 1
}

// Score maps a lift onto [0,1] with 0.5 meaning average.
func Score(lift float64) float64 {
	return min(max(0.5+lift/2, 0), 1)
}
