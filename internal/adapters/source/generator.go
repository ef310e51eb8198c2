package source

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"
)

// Default generator configuration.
const (
	defaultVideoCount = 200
	defaultSoundCount = 25
	defaultSeed       = 42
)

// Engagement tiers, chosen per video.
const (
	tierViral = iota
	tierPopular
	tierAverage
	tierLow
	tierCount
)

var (
	captions = []string{
		"new dance challenge", "easy pasta recipe", "prank on my roommate",
		"5 minute workout", "outfit check", "makeup tutorial", "my pet reacts",
		"day in my life", "funny fail compilation", "howto fold a shirt",
	}
	hashtagPool = []string{"fyp", "viral", "dance", "food", "comedy", "fitness", "fashion", "pets", "tutorial", "trend"}
	genres      = []string{"pop", "hip-hop", "electronic", "rock", "latin", "k-pop", ""}
	titleWords  = []string{"Midnight", "Summer", "Echo", "Neon", "Golden", "Drift", "Pulse", "Velvet", "Static", "Bloom"}
)

// Generator produces a synthetic corpus of scraped videos for demos and
// fixtures. Output is deterministic for a given seed and clock.
type Generator struct {
	count        int
	sounds       int
	seed         int64
	malformedPct int
	now          func() time.Time
	logger       logger.Logger

	mu sync.Mutex
}

// NewGenerator creates a generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		count:  defaultVideoCount,
		sounds: defaultSoundCount,
		seed:   defaultSeed,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.Get().Named("generator")
	}
	return g
}

type soundSeed struct {
	meta model.MusicMeta
	base float64
}

// Fetch generates the corpus and applies f.
func (g *Generator) Fetch(ctx context.Context, f Filter) ([]model.RawVideo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rng := rand.New(rand.NewSource(g.seed)) //nolint:gosec // reproducible fixtures
	now := g.now().UTC()

	pool := make([]soundSeed, g.sounds)
	for i := range pool {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, fmt.Errorf("generate sound id: %w", err)
		}
		pool[i] = soundSeed{
			meta: model.MusicMeta{
				ID:       id.String(),
				Title:    titleWords[rng.Intn(len(titleWords))] + " " + titleWords[rng.Intn(len(titleWords))],
				Duration: model.Float(float64(15 + rng.Intn(180))),
				PlayURL:  "https://cdn.example.com/sounds/" + id.String() + ".mp3",
				CoverURL: "https://cdn.example.com/covers/" + id.String() + ".jpg",
				Genre:    genres[rng.Intn(len(genres))],
			},
			base: float64(1000 + rng.Intn(200000)),
		}
	}

	videos := make([]model.RawVideo, 0, g.count)
	for i := range g.count {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during video generation: %w", err)
		}
		v, err := g.video(rng, pool, now, i)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}

	out := f.Apply(videos)
	metrics.RecordSourceVideos(len(out))
	g.logger.Info(ctx, "generated videos", logger.Int("count", len(out)), logger.Int("sounds", len(pool)))
	return out, nil
}

func (g *Generator) video(rng *rand.Rand, pool []soundSeed, now time.Time, index int) (model.RawVideo, error) {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return model.RawVideo{}, fmt.Errorf("generate video id: %w", err)
	}

	plays, likes := engagement(rng)
	v := model.RawVideo{
		ID:         id.String(),
		Text:       captions[rng.Intn(len(captions))],
		CreateTime: now.Add(-time.Duration(rng.Intn(72)) * time.Hour),
		AuthorMeta: model.AuthorMeta{
			ID:       fmt.Sprintf("author-%d", rng.Intn(g.count/2+1)),
			Nickname: fmt.Sprintf("creator%d", index),
		},
		VideoMeta: model.VideoMeta{Duration: model.Float(float64(5 + rng.Intn(55)))},
		Hashtags:  []string{hashtagPool[rng.Intn(len(hashtagPool))], hashtagPool[rng.Intn(len(hashtagPool))]},
		Stats: model.VideoStats{
			PlayCount:    model.Float(plays),
			DiggCount:    model.Float(likes),
			ShareCount:   model.Float(float64(int(likes) / (5 + rng.Intn(10)))),
			CommentCount: model.Float(float64(int(likes) / (10 + rng.Intn(20)))),
		},
		VideoURL: "https://cdn.example.com/videos/" + id.String() + ".mp4",
	}

	// One in eight videos carries no sound.
	if rng.Intn(8) != 0 {
		s := pool[rng.Intn(len(pool))]
		m := s.meta
		m.UsageCount = model.Float(float64(int(s.base * (0.5 + rng.Float64()))))
		v.Music = &m
	}

	if g.malformedPct > 0 && rng.Intn(100) < g.malformedPct {
		v.Stats.PlayCount = nil
	}
	return v, nil
}

func engagement(rng *rand.Rand) (plays, likes float64) {
	switch rng.Intn(tierCount) {
	case tierViral:
		plays = float64(500_001 + rng.Intn(5_000_000))
	case tierPopular:
		plays = float64(100_000 + rng.Intn(400_000))
	case tierAverage:
		plays = float64(5_000 + rng.Intn(95_000))
	default:
		plays = float64(rng.Intn(5_000))
	}
	likes = float64(int(plays * (0.02 + rng.Float64()*0.1)))
	return plays, likes
}
