// Package repotest holds the behaviour suite every repository.Store must
// pass.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/trendetl/internal/adapters/repository"
	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) repository.Store

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func sound(id, genre string, stage model.Stage, v7 float64) *model.Sound {
	return &model.Sound{
		ID:           id,
		Title:        "track " + id,
		Genre:        genre,
		UsageHistory: map[string]int64{"2024-03-01": 10},
		Stats:        model.SoundStats{GrowthVelocity7d: v7, GrowthVelocity14d: v7 / 2, UsageCount: int64(v7)},
		Lifecycle:    model.Lifecycle{Stage: stage},
		CreatedAt:    day0,
		UpdatedAt:    day0,
	}
}

func template(id, category string, velocity, engagement float64) *model.Template {
	return &model.Template{
		ID:         id,
		Category:   category,
		Engagement: engagement,
		Hashtags:   []string{"fyp"},
		TrendData:  model.TrendData{VelocityScore: velocity},
		CreatedAt:  day0,
		UpdatedAt:  day0,
	}
}

// Run exercises the entity, report and job stores.
func Run(t *testing.T, newStore Factory) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		st := newStore(t)

		Convey("Sounds round-trip and stay isolated from callers", func() {
			s := sound("s1", "pop", model.StageGrowing, 5)
			So(st.Sounds().Put(ctx, s), ShouldBeNil)
			s.Title = "mutated"

			got, err := st.Sounds().Get(ctx, "s1")
			So(err, ShouldBeNil)
			So(got.Title, ShouldEqual, "track s1")
			So(got.UsageHistory, ShouldResemble, map[string]int64{"2024-03-01": 10})

			n, err := st.Sounds().Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("Unknown ids are not found", func() {
			_, err := st.Sounds().Get(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(err, etlerr.ErrNotFound), ShouldBeTrue)

			_, err = st.Templates().Update(ctx, "nope", func(*model.Template) error { return nil })
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Update applies the patch and keeps ranking current", func() {
			So(st.Sounds().Put(ctx, sound("a", "pop", model.StageStable, 1)), ShouldBeNil)
			So(st.Sounds().Put(ctx, sound("b", "pop", model.StageStable, 2)), ShouldBeNil)

			updated, err := st.Sounds().Update(ctx, "a", func(s *model.Sound) error {
				s.Stats.GrowthVelocity7d = 9
				s.UsageHistory["2024-03-02"] = 20
				return nil
			})
			So(err, ShouldBeNil)
			So(updated.UsageHistory, ShouldHaveLength, 2)

			top, err := st.Sounds().QueryTopByMetric(ctx, model.MetricSoundVelocity7d, 1)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 1)
			So(top[0].ID, ShouldEqual, "a")
		})

		Convey("A failing patch leaves the entity unchanged", func() {
			So(st.Sounds().Put(ctx, sound("a", "pop", model.StageStable, 1)), ShouldBeNil)
			boom := errors.New("boom")
			_, err := st.Sounds().Update(ctx, "a", func(s *model.Sound) error {
				s.Title = "changed"
				return boom
			})
			So(errors.Is(err, boom), ShouldBeTrue)

			got, _ := st.Sounds().Get(ctx, "a")
			So(got.Title, ShouldEqual, "track a")
		})

		Convey("Top-by-metric orders by value then id", func() {
			for i, v := range []float64{3, 7, 7, 1} {
				So(st.Sounds().Put(ctx, sound(fmt.Sprintf("s%d", i), "pop", model.StageStable, v)), ShouldBeNil)
			}
			top, err := st.Sounds().QueryTopByMetric(ctx, model.MetricSoundVelocity7d, 0)
			So(err, ShouldBeNil)
			ids := make([]string, len(top))
			for i, s := range top {
				ids[i] = s.ID
			}
			So(ids, ShouldResemble, []string{"s1", "s2", "s0", "s3"})

			_, err = st.Sounds().QueryTopByMetric(ctx, "bogus", 3)
			So(errors.Is(err, repository.ErrUnknownField), ShouldBeTrue)
		})

		Convey("Field queries filter, sort by id and limit", func() {
			So(st.Sounds().Put(ctx, sound("z", "pop", model.StageEmerging, 1)), ShouldBeNil)
			So(st.Sounds().Put(ctx, sound("y", "rock", model.StageEmerging, 1)), ShouldBeNil)
			So(st.Sounds().Put(ctx, sound("x", "pop", model.StagePeaking, 1)), ShouldBeNil)

			got, err := st.Sounds().QueryByField(ctx, model.FieldSoundStage, string(model.StageEmerging), 0)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].ID, ShouldEqual, "y")
			So(got[1].ID, ShouldEqual, "z")

			got, err = st.Sounds().QueryByField(ctx, model.FieldSoundGenre, "pop", 1)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].ID, ShouldEqual, "x")

			_, err = st.Sounds().QueryByField(ctx, "title", "x", 0)
			So(errors.Is(err, repository.ErrUnknownField), ShouldBeTrue)
		})

		Convey("Templates rank by velocity score and filter by category", func() {
			So(st.Templates().Put(ctx, template("t1", "dance", 10, 100)), ShouldBeNil)
			So(st.Templates().Put(ctx, template("t2", "dance", 80, 300)), ShouldBeNil)
			So(st.Templates().Put(ctx, template("t3", "comedy", 50, 50)), ShouldBeNil)

			top, err := st.Templates().QueryTopByMetric(ctx, model.MetricTemplateVelocity, 2)
			So(err, ShouldBeNil)
			So(top[0].ID, ShouldEqual, "t2")
			So(top[1].ID, ShouldEqual, "t3")

			dance, err := st.Templates().QueryByField(ctx, model.FieldTemplateCat, "dance", 0)
			So(err, ShouldBeNil)
			So(dance, ShouldHaveLength, 2)
			So(dance[0].Hashtags, ShouldResemble, []string{"fyp"})
		})

		Convey("Reports are immutable and the latest is returned", func() {
			r1 := &model.TrendReport{ID: "r1", Date: "2024-03-01", CreatedAt: day0,
				GenreDistribution: map[string]int{"pop": 1}}
			r2 := &model.TrendReport{ID: "r2", Date: "2024-03-02", CreatedAt: day0.Add(24 * time.Hour)}
			So(st.Reports().Put(ctx, r1), ShouldBeNil)
			So(st.Reports().Put(ctx, r2), ShouldBeNil)
			So(errors.Is(st.Reports().Put(ctx, r1), repository.ErrAlreadyExists), ShouldBeTrue)

			latest, err := st.Reports().Latest(ctx)
			So(err, ShouldBeNil)
			So(latest.ID, ShouldEqual, "r2")

			got, err := st.Reports().Get(ctx, "r1")
			So(err, ShouldBeNil)
			So(got.GenreDistribution["pop"], ShouldEqual, 1)
		})

		Convey("With no reports the latest is not found", func() {
			_, err := st.Reports().Latest(ctx)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Jobs seal exactly once", func() {
			j := &model.Job{ID: "j1", Name: "extract", Type: "extract_sounds", Status: model.JobRunning, StartTime: day0}
			So(st.Jobs().Create(ctx, j), ShouldBeNil)
			So(errors.Is(st.Jobs().Create(ctx, j), repository.ErrAlreadyExists), ShouldBeTrue)

			end := day0.Add(time.Minute)
			sealed, err := st.Jobs().Seal(ctx, "j1", model.JobFailed, model.JobResult{Processed: 4}, "boom", end)
			So(err, ShouldBeNil)
			So(sealed.Status, ShouldEqual, model.JobFailed)
			So(sealed.Result.Processed, ShouldEqual, 4)

			_, err = st.Jobs().Seal(ctx, "j1", model.JobCompleted, model.JobResult{}, "", end)
			So(errors.Is(err, repository.ErrJobSealed), ShouldBeTrue)

			got, err := st.Jobs().Get(ctx, "j1")
			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, model.JobFailed)
			So(got.FailureReason, ShouldEqual, "boom")
			So(got.EndTime.Equal(end), ShouldBeTrue)
		})

		Convey("Jobs list newest first with a type filter", func() {
			for i, typ := range []string{"a", "b", "a"} {
				So(st.Jobs().Create(ctx, &model.Job{
					ID: fmt.Sprintf("j%d", i), Type: typ, Status: model.JobRunning,
					StartTime: day0.Add(time.Duration(i) * time.Minute),
				}), ShouldBeNil)
			}

			all, err := st.Jobs().List(ctx, "", 0)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 3)
			So(all[0].ID, ShouldEqual, "j2")

			onlyA, err := st.Jobs().List(ctx, "a", 1)
			So(err, ShouldBeNil)
			So(onlyA, ShouldHaveLength, 1)
			So(onlyA[0].ID, ShouldEqual, "j2")
		})
	})
}
