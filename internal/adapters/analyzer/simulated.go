package analyzer

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/okian/trendetl/internal/domain/model"
)

// Default simulated analyzer configuration.
const (
	defaultMinLatency = 80 * time.Millisecond
	defaultMaxLatency = 150 * time.Millisecond
	defaultRandomSeed = 42
)

// categoryKeywords maps caption and hashtag keywords to categories.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"dance", "dance"},
	{"recipe", "food"},
	{"cook", "food"},
	{"prank", "comedy"},
	{"funny", "comedy"},
	{"tutorial", "education"},
	{"howto", "education"},
	{"outfit", "fashion"},
	{"workout", "fitness"},
	{"pet", "animals"},
}

var elementPool = []string{
	"text overlay", "voiceover", "jump cut", "green screen", "duet",
	"slow motion", "transition", "face close-up", "split screen", "caption",
}

// Simulated is a deterministic analyzer that models a remote ML service's
// latency. The payload varies in shape the way the real service does:
// insights are sometimes a bare string and similarity patterns sometimes an
// object.
type Simulated struct {
	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated creates a simulated analyzer.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic latency for reproducible runs
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze waits for the simulated latency and then derives the payload from
// the video alone, so equal videos always produce equal payloads.
func (s *Simulated) Analyze(ctx context.Context, v model.RawVideo) (Response, error) {
	if latency := s.latency(); latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(v.ID))
	seed := h.Sum32()

	duration := 0.0
	if v.VideoMeta.Duration != nil {
		duration = *v.VideoMeta.Duration
	}
	hook := duration / 5
	sections := []any{
		map[string]any{"type": "hook", "startTime": 0, "endTime": hook, "label": "opening"},
		map[string]any{"type": "body", "startTime": hook, "endTime": duration},
	}

	elements := make([]any, 0, 3)
	for i := range uint32(3) {
		elements = append(elements, elementPool[(seed+i*7)%uint32(len(elementPool))])
	}

	resp := Response{
		"sections":         sections,
		"category":         categorize(v),
		"detectedElements": elements,
	}
	insight := fmt.Sprintf("hook lands within %.1fs", hook)
	if seed%2 == 0 {
		resp["engagementInsights"] = insight
	} else {
		resp["engagementInsights"] = []any{insight, "strong loop potential"}
	}
	if seed%3 == 0 {
		resp["similarityPatterns"] = map[string]any{"pace": pace(duration), "elements": len(elements)}
	} else {
		resp["similarityPatterns"] = pace(duration) + " pace"
	}
	return resp, nil
}

func (s *Simulated) latency() time.Duration {
	if s.maxLatency <= s.minLatency {
		return s.minLatency
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
}

func categorize(v model.RawVideo) string {
	text := strings.ToLower(v.Text + " " + strings.Join(v.Hashtags, " "))
	for _, kw := range categoryKeywords {
		if strings.Contains(text, kw.keyword) {
			return kw.category
		}
	}
	return ""
}

func pace(duration float64) string {
	switch {
	case duration <= 15:
		return "fast"
	case duration <= 45:
		return "medium"
	default:
		return "slow"
	}
}
