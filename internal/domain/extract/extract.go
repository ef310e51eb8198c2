// Package extract derives sound and template entities from prioritized
// videos and merges them into previously stored versions.
package extract

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/internal/domain/priority"
	"github.com/okian/trendetl/internal/domain/validate"
)

// UnknownGenre is recorded when the scrape carries no genre.
const UnknownGenre = "unknown"

// maxTitleRunes bounds template titles taken from the video caption.
const maxTitleRunes = 120

// SoundDraft is a sound extracted from one video, together with the
// candidate view the validator checks.
type SoundDraft struct {
	Sound     *model.Sound
	Candidate validate.SoundCandidate
}

// Sound extracts the sound attached to the item's video. It returns nil when
// the video carries no music id.
func Sound(item priority.Item, now time.Time) *SoundDraft {
	v := item.Video
	if v == nil || v.Music == nil || strings.TrimSpace(v.Music.ID) == "" {
		return nil
	}
	m := v.Music
	genre := strings.TrimSpace(m.Genre)
	if genre == "" {
		genre = UnknownGenre
	}

	s := &model.Sound{
		ID:           m.ID,
		Title:        strings.TrimSpace(m.Title),
		Genre:        genre,
		PlayURL:      m.PlayURL,
		CoverURL:     m.CoverURL,
		UsageHistory: map[string]int64{model.Day(now): usageCount(m.UsageCount)},
		TemplateUsage: []model.TemplateUsage{{
			TemplateID:        v.ID,
			UseCount:          1,
			AverageEngagement: v.Stats.Engagement(),
			LastUsed:          now,
		}},
		Metadata:  provenance(item, now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if m.Duration != nil {
		s.Duration = *m.Duration
	}
	s.Stats.UsageCount = s.UsageHistory[model.Day(now)]

	return &SoundDraft{
		Sound: s,
		Candidate: validate.SoundCandidate{
			ID:         m.ID,
			Title:      m.Title,
			Duration:   m.Duration,
			UsageCount: m.UsageCount,
			PlayURL:    m.PlayURL,
			CoverURL:   m.CoverURL,
		},
	}
}

// MergeSound folds a freshly extracted sound into the stored one. The stored
// sound keeps its identity and creation time. Today's usage keeps the larger
// count when the day is already recorded, and the source video is added to
// the template usage only once.
func MergeSound(existing, fresh *model.Sound, now time.Time) *model.Sound {
	if existing == nil {
		return fresh.Clone()
	}
	out := existing.Clone()
	if out.UsageHistory == nil {
		out.UsageHistory = make(map[string]int64, len(fresh.UsageHistory))
	}
	for day, n := range fresh.UsageHistory {
		if cur, ok := out.UsageHistory[day]; !ok || n > cur {
			out.UsageHistory[day] = n
		}
	}
	for _, u := range fresh.TemplateUsage {
		if !out.HasTemplate(u.TemplateID) {
			out.TemplateUsage = append(out.TemplateUsage, u)
		}
	}
	if out.Title == "" {
		out.Title = fresh.Title
	}
	if out.Genre == "" || (out.Genre == UnknownGenre && fresh.Genre != UnknownGenre) {
		out.Genre = fresh.Genre
	}
	if out.PlayURL == "" {
		out.PlayURL = fresh.PlayURL
	}
	if out.CoverURL == "" {
		out.CoverURL = fresh.CoverURL
	}
	if out.Duration == 0 {
		out.Duration = fresh.Duration
	}
	out.Metadata = fresh.Metadata
	out.UpdatedAt = now
	return out
}

// Template builds the template derived from the item's video and its
// sanitized analysis. The template id is the video id.
func Template(item priority.Item, analysis model.Analysis, now time.Time) *model.Template {
	v := item.Video
	if v == nil {
		return nil
	}
	t := &model.Template{
		ID:         v.ID,
		Category:   analysis.Category,
		Title:      title(v.Text),
		AuthorID:   v.AuthorMeta.ID,
		Hashtags:   slices.Clone(v.Hashtags),
		Engagement: v.Stats.Engagement(),
		Analysis:   analysis,
		TrendData: model.TrendData{
			SimilarTemplates: []string{},
			DailyViews:       map[string]int64{model.Day(now): usageCount(v.Stats.PlayCount)},
		},
		Metadata:  provenance(item, now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.Hashtags == nil {
		t.Hashtags = []string{}
	}
	if v.VideoMeta.Duration != nil {
		t.Duration = *v.VideoMeta.Duration
	}
	if v.Music != nil {
		t.SoundID = v.Music.ID
	}
	return t
}

// MergeTemplate refreshes a stored template with a new extraction. Trend
// metrics and the similarity neighbourhood are kept; daily views keep the
// larger count per day.
func MergeTemplate(existing, fresh *model.Template, now time.Time) *model.Template {
	if existing == nil {
		return fresh.Clone()
	}
	out := fresh.Clone()
	out.CreatedAt = existing.CreatedAt
	out.UpdatedAt = now

	trend := existing.Clone().TrendData
	if trend.DailyViews == nil {
		trend.DailyViews = make(map[string]int64, len(fresh.TrendData.DailyViews))
	}
	for day, n := range fresh.TrendData.DailyViews {
		if cur, ok := trend.DailyViews[day]; !ok || n > cur {
			trend.DailyViews[day] = n
		}
	}
	if trend.SimilarTemplates == nil {
		trend.SimilarTemplates = []string{}
	}
	out.TrendData = trend
	return out
}

func provenance(item priority.Item, now time.Time) model.Provenance {
	return model.Provenance{
		ExtractedFrom:       item.ID(),
		ExtractionPriority:  item.Priority,
		ExtractionReason:    item.Reason,
		ProcessingTimestamp: now,
	}
}

func usageCount(p *float64) int64 {
	if p == nil || math.IsNaN(*p) || *p < 0 {
		return 0
	}
	return int64(math.Round(*p))
}

func title(text string) string {
	t := strings.Join(strings.Fields(text), " ")
	r := []rune(t)
	if len(r) > maxTitleRunes {
		return string(r[:maxTitleRunes])
	}
	return t
}
