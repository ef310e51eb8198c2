package model

import (
	"maps"
	"slices"
	"time"
)

// Template is a reusable content structure derived from a source video.
// Its ID equals the source video's ID.
type Template struct {
	ID         string     `json:"id"`
	Category   string     `json:"category"`
	Title      string     `json:"title"`
	AuthorID   string     `json:"authorId"`
	Duration   float64    `json:"duration"`
	Hashtags   []string   `json:"hashtags"`
	SoundID    string     `json:"soundId,omitempty"`
	Engagement float64    `json:"engagement"`
	Analysis   Analysis   `json:"analysis"`
	TrendData  TrendData  `json:"trendData"`
	Metadata   Provenance `json:"metadata"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// TrendData holds template growth metrics and its similarity neighbourhood.
type TrendData struct {
	VelocityScore    float64          `json:"velocityScore"`
	DailyGrowth      float64          `json:"dailyGrowth"`
	WeeklyGrowth     float64          `json:"weeklyGrowth"`
	GrowthRate       float64          `json:"growthRate"`
	SimilarTemplates []string         `json:"similarTemplates"`
	DailyViews       map[string]int64 `json:"dailyViews"`
}

// Analysis is the sanitized AI analysis of a template's source video.
type Analysis struct {
	Sections           []Section `json:"sections"`
	Category           string    `json:"category"`
	DetectedElements   []string  `json:"detectedElements"`
	EngagementInsights []string  `json:"engagementInsights"`
	SimilarityPatterns string    `json:"similarityPatterns"`
}

// Section is one structural segment detected by the analyzer.
type Section struct {
	Type      string  `json:"type"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Label     string  `json:"label,omitempty"`
}

// Clone returns a deep copy.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := *t
	c.Hashtags = slices.Clone(t.Hashtags)
	c.Analysis.Sections = slices.Clone(t.Analysis.Sections)
	c.Analysis.DetectedElements = slices.Clone(t.Analysis.DetectedElements)
	c.Analysis.EngagementInsights = slices.Clone(t.Analysis.EngagementInsights)
	c.TrendData.SimilarTemplates = slices.Clone(t.TrendData.SimilarTemplates)
	c.TrendData.DailyViews = maps.Clone(t.TrendData.DailyViews)
	return &c
}
