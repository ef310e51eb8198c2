package repository

import (
	"github.com/okian/trendetl/internal/domain/model"
)

// SoundField returns the value of a queryable sound field.
func SoundField(s *model.Sound, field string) (string, bool) {
	switch field {
	case model.FieldSoundGenre:
		return s.Genre, true
	case model.FieldSoundStage:
		return string(s.Lifecycle.Stage), true
	default:
		return "", false
	}
}

// SoundMetric returns the value of a rankable sound metric.
func SoundMetric(s *model.Sound, metric string) (float64, bool) {
	switch metric {
	case model.MetricSoundVelocity7d:
		return s.Stats.GrowthVelocity7d, true
	case model.MetricSoundVelocity14d:
		return s.Stats.GrowthVelocity14d, true
	case model.MetricSoundVelocity30d:
		return s.Stats.GrowthVelocity30d, true
	case model.MetricSoundUsage:
		return float64(s.Stats.UsageCount), true
	default:
		return 0, false
	}
}

// TemplateField returns the value of a queryable template field.
func TemplateField(t *model.Template, field string) (string, bool) {
	switch field {
	case model.FieldTemplateCat:
		return t.Category, true
	case model.FieldTemplateSound:
		return t.SoundID, true
	case model.FieldTemplateAuthor:
		return t.AuthorID, true
	default:
		return "", false
	}
}

// TemplateMetric returns the value of a rankable template metric.
func TemplateMetric(t *model.Template, metric string) (float64, bool) {
	switch metric {
	case model.MetricTemplateVelocity:
		return t.TrendData.VelocityScore, true
	case model.MetricTemplateEngagement:
		return t.Engagement, true
	default:
		return 0, false
	}
}

// Queryable fields and rankable metrics of each kind.
var (
	SoundFields    = []string{model.FieldSoundGenre, model.FieldSoundStage}
	TemplateFields = []string{model.FieldTemplateCat, model.FieldTemplateSound, model.FieldTemplateAuthor}

	SoundMetrics = []string{
		model.MetricSoundVelocity7d, model.MetricSoundVelocity14d,
		model.MetricSoundVelocity30d, model.MetricSoundUsage,
	}

	TemplateMetrics = []string{model.MetricTemplateVelocity, model.MetricTemplateEngagement}
)
