package model

import (
	"maps"
	"slices"
	"time"
)

// Trend is the short-window direction of a sound's usage.
type Trend string

// Trends.
const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// Stage is a lifecycle stage.
type Stage string

// Lifecycle stages.
const (
	StageEmerging  Stage = "emerging"
	StageGrowing   Stage = "growing"
	StagePeaking   Stage = "peaking"
	StageDeclining Stage = "declining"
	StageStable    Stage = "stable"
)

// Stages lists every lifecycle stage.
var Stages = []Stage{StageEmerging, StageGrowing, StagePeaking, StageDeclining, StageStable}

// Tier is the social-context label derived from a stage.
type Tier string

// Social-context tiers.
const (
	TierGrowing    Tier = "growing"
	TierPeaking    Tier = "peaking"
	TierMainstream Tier = "mainstream"
	TierDeclining  Tier = "declining"
)

// Sound is an audio track tracked across videos.
type Sound struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Genre         string           `json:"genre"`
	Duration      float64          `json:"duration,omitempty"`
	PlayURL       string           `json:"playUrl,omitempty"`
	CoverURL      string           `json:"coverUrl,omitempty"`
	UsageHistory  map[string]int64 `json:"usageHistory"`
	Stats         SoundStats       `json:"stats"`
	Lifecycle     Lifecycle        `json:"lifecycle"`
	TemplateUsage []TemplateUsage  `json:"templateUsage"`
	Metadata      Provenance       `json:"metadata"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// SoundStats holds the metrics computed by the velocity estimator. A window
// flagged insufficient had no base date, so its zero velocity means "no
// data" rather than "no growth".
type SoundStats struct {
	UsageCount        int64   `json:"usageCount"`
	GrowthVelocity7d  float64 `json:"growthVelocity7d"`
	GrowthVelocity14d float64 `json:"growthVelocity14d"`
	GrowthVelocity30d float64 `json:"growthVelocity30d"`
	Insufficient7d    bool    `json:"insufficient7d,omitempty"`
	Insufficient14d   bool    `json:"insufficient14d,omitempty"`
	Insufficient30d   bool    `json:"insufficient30d,omitempty"`
	Trend             Trend   `json:"trend"`
	PeakUsage         int64   `json:"peakUsage"`
	PeakDate          string  `json:"peakDate,omitempty"`
}

// Lifecycle holds the classifier output.
type Lifecycle struct {
	Stage      Stage `json:"stage"`
	SocialTier Tier  `json:"socialTier,omitempty"`
}

// TemplateUsage records how a sound is used by one template.
type TemplateUsage struct {
	TemplateID        string    `json:"templateId"`
	UseCount          int       `json:"useCount"`
	AverageEngagement float64   `json:"averageEngagement"`
	LastUsed          time.Time `json:"lastUsed"`
}

// HasTemplate reports whether a usage entry for templateID exists.
func (s *Sound) HasTemplate(templateID string) bool {
	return slices.ContainsFunc(s.TemplateUsage, func(u TemplateUsage) bool {
		return u.TemplateID == templateID
	})
}

// Usage returns the usage entry for templateID.
func (s *Sound) Usage(templateID string) (TemplateUsage, bool) {
	for _, u := range s.TemplateUsage {
		if u.TemplateID == templateID {
			return u, true
		}
	}
	return TemplateUsage{}, false
}

// Clone returns a deep copy.
func (s *Sound) Clone() *Sound {
	if s == nil {
		return nil
	}
	c := *s
	c.UsageHistory = maps.Clone(s.UsageHistory)
	c.TemplateUsage = slices.Clone(s.TemplateUsage)
	return &c
}
