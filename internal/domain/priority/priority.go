// Package priority assigns an advisory processing order to candidate videos.
package priority

import (
	"slices"

	"github.com/okian/trendetl/internal/domain/model"
)

// Thresholds for the engagement and sound-popularity rules.
const (
	HighPlayCount   = 500_000
	HighLikeCount   = 100_000
	PopularSoundUse = 50_000
)

// Reasons attached to each rule.
const (
	ReasonTrendingTemplate = "associated with trending template"
	ReasonHighEngagement   = "high engagement"
	ReasonPopularSound     = "popular sound"
	ReasonStandard         = "standard processing"
)

// Item is a video with its assigned priority.
type Item struct {
	Video    *model.RawVideo
	Priority model.Priority
	Reason   string
}

// ID returns the video id.
func (i Item) ID() string {
	if i.Video == nil {
		return ""
	}
	return i.Video.ID
}

// Prioritize assigns each video a priority, first matching rule wins, and
// returns them stably sorted high, medium, low. The output has the same
// length as the input.
func Prioritize(videos []*model.RawVideo, knownTrendingIDs map[string]struct{}) []Item {
	items := make([]Item, 0, len(videos))
	for _, v := range videos {
		p, reason := Classify(v, knownTrendingIDs)
		items = append(items, Item{Video: v, Priority: p, Reason: reason})
	}
	slices.SortStableFunc(items, func(a, b Item) int {
		return a.Priority.Rank() - b.Priority.Rank()
	})
	return items
}

// Classify applies the rules to a single video.
func Classify(v *model.RawVideo, knownTrendingIDs map[string]struct{}) (model.Priority, string) {
	if v == nil {
		return model.PriorityLow, ReasonStandard
	}
	if _, ok := knownTrendingIDs[v.ID]; ok {
		return model.PriorityHigh, ReasonTrendingTemplate
	}
	if v.Stats.Plays() > HighPlayCount || v.Stats.Likes() > HighLikeCount {
		return model.PriorityHigh, ReasonHighEngagement
	}
	if v.MusicUsage() > PopularSoundUse {
		return model.PriorityMedium, ReasonPopularSound
	}
	return model.PriorityLow, ReasonStandard
}

// IDSet builds a membership set from ids.
func IDSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
