// Package similarity finds related templates, either against one target or
// across a capped candidate set.
package similarity

import (
	"context"
	"fmt"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"
)

// Defaults.
const (
	DefaultCandidateCap = 200
	DefaultCacheSize    = 4096
)

// TemplateSource reads templates for targeted searches.
type TemplateSource interface {
	Get(ctx context.Context, id string) (*model.Template, error)
	QueryTopByMetric(ctx context.Context, metric string, limit int) ([]*model.Template, error)
}

// Match is one ranked neighbour of a target.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Pair is one unordered pair kept by a corpus-wide scan.
type Pair struct {
	A     string  `json:"idA"`
	B     string  `json:"idB"`
	Score float64 `json:"score"`
}

// pairKey identifies an unordered pair at given versions.
type pairKey struct {
	lo, hi   string
	loV, hiV int64
}

func keyOf(a, b *model.Template) pairKey {
	if b.ID < a.ID {
		a, b = b, a
	}
	return pairKey{lo: a.ID, hi: b.ID, loV: a.UpdatedAt.UnixNano(), hiV: b.UpdatedAt.UnixNano()}
}

// Engine normalizes comparator scores and memoizes them per pair.
type Engine struct {
	cmp          Comparator
	source       TemplateSource
	cache        *lru.Cache[pairKey, float64]
	candidateCap int
	logger       logger.Logger
}

// New creates an engine. source may be nil when only FindAllPairs is used.
func New(source TemplateSource, opts ...Option) (*Engine, error) {
	e := &Engine{
		cmp:          FeatureComparator{},
		source:       source,
		candidateCap: DefaultCandidateCap,
	}
	cacheSize := DefaultCacheSize
	for _, opt := range opts {
		opt(e, &cacheSize)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("similarity")
	}
	if e.candidateCap < 2 {
		e.candidateCap = DefaultCandidateCap
	}
	cache, err := lru.New[pairKey, float64](max(cacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("similarity cache: %w", err)
	}
	e.cache = cache
	return e, nil
}

// Score returns the normalized similarity of a and b in [0,1].
func (e *Engine) Score(a, b *model.Template) float64 {
	k := keyOf(a, b)
	if s, ok := e.cache.Get(k); ok {
		metrics.RecordSimilarityCacheHit()
		return s
	}
	lo, hi := a, b
	if b.ID < a.ID {
		lo, hi = b, a
	}
	// Always compare in key order so the cached value does not depend on
	// argument order.
	s := clamp01(e.cmp.Compare(lo, hi) / 100)
	metrics.RecordSimilarityComparison()
	e.cache.Add(k, s)
	return s
}

// FindSimilar ranks up to topN templates against the template with id. The
// candidate set is the capped top of the store by velocity score.
func (e *Engine) FindSimilar(ctx context.Context, id string, topN int) ([]Match, error) {
	if e.source == nil {
		return nil, fmt.Errorf("similarity: no template source")
	}
	target, err := e.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	candidates, err := e.source.QueryTopByMetric(ctx, model.MetricTemplateVelocity, e.candidateCap)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.ID == target.ID {
			continue
		}
		if s := e.Score(target, c); s > 0 {
			matches = append(matches, Match{ID: c.ID, Score: s})
		}
	}
	slices.SortStableFunc(matches, func(a, b Match) int { return cmpDesc(a.Score, b.Score) })
	if topN > 0 && len(matches) > topN {
		matches = matches[:topN]
	}
	return matches, nil
}

// Candidates returns the prefix of entities that FindAllPairs compares.
func (e *Engine) Candidates(entities []*model.Template) []*model.Template {
	if len(entities) > e.candidateCap {
		return entities[:e.candidateCap]
	}
	return entities
}

// FindAllPairs compares every unordered pair of the first candidateCap
// entities once, keeps pairs scoring at least minSimilarity and returns them
// by descending score, truncated to maxResults when positive. Ties keep
// enumeration order. Self pairs are never produced.
func (e *Engine) FindAllPairs(ctx context.Context, entities []*model.Template, minSimilarity float64, maxResults int) []Pair {
	if len(entities) > e.candidateCap {
		e.logger.Debug(ctx, "capping similarity candidates",
			logger.Int("candidates", len(entities)),
			logger.Int("cap", e.candidateCap),
		)
	}
	entities = e.Candidates(entities)

	start := time.Now()
	var pairs []Pair
	for i := 0; i < len(entities); i++ {
		a := entities[i]
		if a == nil {
			continue
		}
		for j := i + 1; j < len(entities); j++ {
			b := entities[j]
			if b == nil || a.ID == b.ID {
				continue
			}
			if s := e.Score(a, b); s >= minSimilarity {
				pairs = append(pairs, Pair{A: a.ID, B: b.ID, Score: s})
			}
		}
	}
	slices.SortStableFunc(pairs, func(a, b Pair) int { return cmpDesc(a.Score, b.Score) })
	if maxResults > 0 && len(pairs) > maxResults {
		pairs = pairs[:maxResults]
	}

	metrics.UpdateSimilarityPairsKept(len(pairs))
	e.logger.Debug(ctx, "similarity scan finished",
		logger.Int("entities", len(entities)),
		logger.Int("kept", len(pairs)),
		logger.Duration("took", time.Since(start)),
	)
	return pairs
}

// Neighbours groups pairs into a per-id list of related ids in pair order.
func Neighbours(pairs []Pair) map[string][]string {
	out := make(map[string][]string)
	for _, p := range pairs {
		out[p.A] = append(out[p.A], p.B)
		out[p.B] = append(out[p.B], p.A)
	}
	return out
}

func cmpDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
