package similarity_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/internal/domain/similarity"
	"github.com/okian/trendetl/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSource struct {
	templates []*model.Template
}

func (f *fakeSource) Get(_ context.Context, id string) (*model.Template, error) {
	for _, t := range f.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeSource) QueryTopByMetric(_ context.Context, _ string, limit int) ([]*model.Template, error) {
	if limit > 0 && limit < len(f.templates) {
		return f.templates[:limit], nil
	}
	return f.templates, nil
}

func corpus() []*model.Template {
	return []*model.Template{
		{ID: "t1", Category: "dance", Duration: 15, Engagement: 1000, Hashtags: []string{"#dance", "fyp"},
			Analysis: model.Analysis{DetectedElements: []string{"hook", "transition"}}},
		{ID: "t2", Category: "dance", Duration: 16, Engagement: 900, Hashtags: []string{"dance"},
			Analysis: model.Analysis{DetectedElements: []string{"hook"}}},
		{ID: "t3", Category: "comedy", Duration: 45, Engagement: 50, Hashtags: []string{"lol"}},
		{ID: "t4", Category: "dance", Duration: 30, Engagement: 300},
		{ID: "t5", Category: "tutorial", Duration: 60, Engagement: 10},
	}
}

func newEngine(src similarity.TemplateSource, opts ...similarity.Option) *similarity.Engine {
	opts = append(opts, similarity.WithLogger(logger.Nop()))
	e, err := similarity.New(src, opts...)
	So(err, ShouldBeNil)
	return e
}

func TestScore(t *testing.T) {
	Convey("Given the feature comparator", t, func() {
		e := newEngine(nil)
		ts := corpus()

		Convey("Scores are symmetric and normalized", func() {
			for _, a := range ts {
				for _, b := range ts {
					s := e.Score(a, b)
					So(s, ShouldEqual, e.Score(b, a))
					So(s, ShouldBeBetweenOrEqual, 0, 1)
				}
			}
		})

		Convey("Close templates outscore distant ones", func() {
			So(e.Score(ts[0], ts[1]), ShouldBeGreaterThan, e.Score(ts[0], ts[2]))
		})
	})

	Convey("Given a comparator that overshoots", t, func() {
		e := newEngine(nil, similarity.WithComparator(similarity.ComparatorFunc(func(_, _ *model.Template) float64 {
			return 250
		})))
		So(e.Score(&model.Template{ID: "a"}, &model.Template{ID: "b"}), ShouldEqual, 1)
	})

	Convey("Given a counting comparator", t, func() {
		var calls atomic.Int64
		e := newEngine(nil, similarity.WithComparator(similarity.ComparatorFunc(func(_, _ *model.Template) float64 {
			calls.Add(1)
			return 50
		})))
		a, b := &model.Template{ID: "a"}, &model.Template{ID: "b"}

		e.Score(a, b)
		e.Score(b, a)

		Convey("Then the reversed pair is served from cache", func() {
			So(calls.Load(), ShouldEqual, 1)
		})
	})
}

func TestFindAllPairs(t *testing.T) {
	Convey("Given five templates", t, func() {
		ctx := context.Background()
		e := newEngine(nil)
		ts := corpus()

		Convey("A threshold above the maximum keeps nothing", func() {
			So(e.FindAllPairs(ctx, ts, 1.1, 100), ShouldBeEmpty)
		})

		Convey("A zero threshold keeps every unordered pair once", func() {
			pairs := e.FindAllPairs(ctx, ts, 0, 0)
			So(pairs, ShouldHaveLength, len(ts)*(len(ts)-1)/2)

			seen := map[string]bool{}
			for _, p := range pairs {
				So(p.A, ShouldNotEqual, p.B)
				key := p.A + "|" + p.B
				So(seen[key], ShouldBeFalse)
				seen[key] = true
			}
		})

		Convey("Results are sorted descending and truncated", func() {
			pairs := e.FindAllPairs(ctx, ts, 0, 3)
			So(pairs, ShouldHaveLength, 3)
			for i := 1; i < len(pairs); i++ {
				So(pairs[i-1].Score, ShouldBeGreaterThanOrEqualTo, pairs[i].Score)
			}
			So(pairs[0].A, ShouldEqual, "t1")
			So(pairs[0].B, ShouldEqual, "t2")
		})

		Convey("Duplicate ids never pair with themselves", func() {
			dup := append(corpus()[:2], &model.Template{ID: "t1", Category: "dance"})
			for _, p := range e.FindAllPairs(ctx, dup, 0, 0) {
				So(p.A, ShouldNotEqual, p.B)
			}
		})
	})

	Convey("Given a candidate cap smaller than the corpus", t, func() {
		e := newEngine(nil, similarity.WithCandidateCap(3))
		var ts []*model.Template
		for i := range 10 {
			ts = append(ts, &model.Template{ID: fmt.Sprintf("t%02d", i), Category: "dance"})
		}

		So(e.FindAllPairs(context.Background(), ts, 0, 0), ShouldHaveLength, 3)
		So(e.Candidates(ts), ShouldHaveLength, 3)
		So(e.Candidates(ts[:2]), ShouldHaveLength, 2)
	})

	Convey("Ties keep enumeration order", t, func() {
		e := newEngine(nil, similarity.WithComparator(similarity.ComparatorFunc(func(_, _ *model.Template) float64 {
			return 70
		})))
		ts := []*model.Template{{ID: "a"}, {ID: "b"}, {ID: "c"}}
		pairs := e.FindAllPairs(context.Background(), ts, 0.5, 0)
		So(pairs, ShouldResemble, []similarity.Pair{
			{A: "a", B: "b", Score: 0.7},
			{A: "a", B: "c", Score: 0.7},
			{A: "b", B: "c", Score: 0.7},
		})
	})
}

func TestFindSimilar(t *testing.T) {
	Convey("Given a template source", t, func() {
		ctx := context.Background()
		e := newEngine(&fakeSource{templates: corpus()})

		Convey("The target is excluded and the closest ranks first", func() {
			matches, err := e.FindSimilar(ctx, "t1", 2)
			So(err, ShouldBeNil)
			So(matches, ShouldHaveLength, 2)
			So(matches[0].ID, ShouldEqual, "t2")
			for _, m := range matches {
				So(m.ID, ShouldNotEqual, "t1")
			}
		})

		Convey("An unknown target is an error", func() {
			_, err := e.FindSimilar(ctx, "missing", 5)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestNeighbours(t *testing.T) {
	Convey("Neighbours index both sides of each pair", t, func() {
		n := similarity.Neighbours([]similarity.Pair{{A: "a", B: "b"}, {A: "a", B: "c"}})
		So(n["a"], ShouldResemble, []string{"b", "c"})
		So(n["b"], ShouldResemble, []string{"a"})
	})
}
