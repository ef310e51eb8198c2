package model

// Queryable fields and rankable metrics understood by every store.
const (
	FieldSoundGenre     = "genre"
	FieldSoundStage     = "lifecycle.stage"
	FieldTemplateCat    = "category"
	FieldTemplateSound  = "soundId"
	FieldTemplateAuthor = "authorId"

	MetricSoundVelocity7d  = "stats.growthVelocity7d"
	MetricSoundVelocity14d = "stats.growthVelocity14d"
	MetricSoundVelocity30d = "stats.growthVelocity30d"
	MetricSoundUsage       = "stats.usageCount"

	MetricTemplateVelocity   = "trendData.velocityScore"
	MetricTemplateEngagement = "engagement"
)
