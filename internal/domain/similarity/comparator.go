package similarity

import (
	"math"
	"strings"

	"github.com/okian/trendetl/internal/domain/model"
)

// Comparator returns a raw similarity in [0,100] for two templates.
// Implementations must be symmetric.
type Comparator interface {
	Compare(a, b *model.Template) float64
}

// ComparatorFunc adapts a function to Comparator.
type ComparatorFunc func(a, b *model.Template) float64

// Compare implements Comparator.
func (f ComparatorFunc) Compare(a, b *model.Template) float64 { return f(a, b) }

// Feature weights; they sum to 100.
const (
	weightCategory   = 40
	weightDuration   = 20
	weightEngagement = 20
	weightOverlap    = 20
)

// FeatureComparator scores category match, duration and engagement
// proximity and overlap of detected elements and hashtags.
type FeatureComparator struct{}

// Compare implements Comparator.
func (FeatureComparator) Compare(a, b *model.Template) float64 {
	if a == nil || b == nil {
		return 0
	}
	var score float64
	if a.Category != "" && strings.EqualFold(a.Category, b.Category) {
		score += weightCategory
	}
	score += weightDuration * ratio(a.Duration, b.Duration)
	score += weightEngagement * ratio(a.Engagement, b.Engagement)
	score += weightOverlap * jaccard(features(a), features(b))
	return score
}

// ratio is min/max of two non-negative values, 0 when either is not positive.
func ratio(x, y float64) float64 {
	if x <= 0 || y <= 0 {
		return 0
	}
	return math.Min(x, y) / math.Max(x, y)
}

func features(t *model.Template) map[string]struct{} {
	set := make(map[string]struct{}, len(t.Analysis.DetectedElements)+len(t.Hashtags))
	for _, s := range t.Analysis.DetectedElements {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	for _, s := range t.Hashtags {
		set["#"+strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))] = struct{}{}
	}
	delete(set, "")
	delete(set, "#")
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
