package extract_test

import (
	"testing"
	"time"

	"github.com/okian/trendetl/internal/domain/extract"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/internal/domain/priority"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func video() *model.RawVideo {
	return &model.RawVideo{
		ID:         "v1",
		Text:       "  dance   challenge  ",
		AuthorMeta: model.AuthorMeta{ID: "a1", Nickname: "dancer"},
		VideoMeta:  model.VideoMeta{Duration: model.Float(15)},
		Hashtags:   []string{"dance"},
		Stats: model.VideoStats{
			PlayCount:    model.Float(1000),
			DiggCount:    model.Float(30),
			ShareCount:   model.Float(30),
			CommentCount: model.Float(30),
		},
		Music: &model.MusicMeta{ID: "s1", Title: "Beat", UsageCount: model.Float(120), PlayURL: "https://cdn/s1.mp3"},
	}
}

func item(v *model.RawVideo) priority.Item {
	return priority.Item{Video: v, Priority: model.PriorityHigh, Reason: priority.ReasonHighEngagement}
}

func TestSound(t *testing.T) {
	Convey("Given a video with music", t, func() {
		d := extract.Sound(item(video()), now)

		Convey("Then the draft carries history, usage and provenance", func() {
			So(d, ShouldNotBeNil)
			So(d.Sound.ID, ShouldEqual, "s1")
			So(d.Sound.Genre, ShouldEqual, extract.UnknownGenre)
			So(d.Sound.UsageHistory, ShouldResemble, map[string]int64{"2024-03-10": 120})
			So(d.Sound.TemplateUsage, ShouldHaveLength, 1)
			So(d.Sound.TemplateUsage[0].TemplateID, ShouldEqual, "v1")
			So(d.Sound.TemplateUsage[0].AverageEngagement, ShouldEqual, 30)
			So(d.Sound.Metadata.ExtractedFrom, ShouldEqual, "v1")
			So(d.Sound.Metadata.ExtractionPriority, ShouldEqual, model.PriorityHigh)
			So(d.Candidate.Title, ShouldEqual, "Beat")
			So(*d.Candidate.UsageCount, ShouldEqual, 120)
		})
	})

	Convey("A video without a music id yields nothing", t, func() {
		v := video()
		v.Music.ID = " "
		So(extract.Sound(item(v), now), ShouldBeNil)

		v.Music = nil
		So(extract.Sound(item(v), now), ShouldBeNil)
	})
}

func TestMergeSound(t *testing.T) {
	Convey("Given a stored sound", t, func() {
		created := now.Add(-48 * time.Hour)
		existing := &model.Sound{
			ID:            "s1",
			Title:         "Beat",
			Genre:         "pop",
			UsageHistory:  map[string]int64{"2024-03-08": 50, "2024-03-10": 200},
			TemplateUsage: []model.TemplateUsage{{TemplateID: "v1", UseCount: 3}},
			CreatedAt:     created,
		}

		Convey("When the same video is extracted again with a smaller count", func() {
			fresh := extract.Sound(item(video()), now).Sound
			merged := extract.MergeSound(existing, fresh, now)

			Convey("Then the larger same-day count and the usage entry are kept", func() {
				So(merged.UsageHistory["2024-03-10"], ShouldEqual, 200)
				So(merged.UsageHistory["2024-03-08"], ShouldEqual, 50)
				So(merged.TemplateUsage, ShouldHaveLength, 1)
				So(merged.TemplateUsage[0].UseCount, ShouldEqual, 3)
				So(merged.Genre, ShouldEqual, "pop")
				So(merged.CreatedAt, ShouldEqual, created)
				So(merged.UpdatedAt, ShouldEqual, now)
			})

			Convey("Then the stored sound is not modified", func() {
				So(existing.UpdatedAt.IsZero(), ShouldBeTrue)
				So(existing.Metadata.ExtractedFrom, ShouldEqual, "")
			})
		})

		Convey("When a new video uses it", func() {
			v := video()
			v.ID = "v2"
			v.Music.UsageCount = model.Float(500)
			merged := extract.MergeSound(existing, extract.Sound(item(v), now).Sound, now)

			So(merged.UsageHistory["2024-03-10"], ShouldEqual, 500)
			So(merged.TemplateUsage, ShouldHaveLength, 2)
			So(merged.HasTemplate("v2"), ShouldBeTrue)
		})
	})
}

func TestTemplate(t *testing.T) {
	Convey("Given a video and its analysis", t, func() {
		a := model.Analysis{Category: "dance", DetectedElements: []string{"text overlay"}}
		tpl := extract.Template(item(video()), a, now)

		Convey("Then the template mirrors the video", func() {
			So(tpl.ID, ShouldEqual, "v1")
			So(tpl.Title, ShouldEqual, "dance challenge")
			So(tpl.Category, ShouldEqual, "dance")
			So(tpl.SoundID, ShouldEqual, "s1")
			So(tpl.Duration, ShouldEqual, 15)
			So(tpl.Engagement, ShouldEqual, 30)
			So(tpl.TrendData.DailyViews, ShouldResemble, map[string]int64{"2024-03-10": 1000})
			So(tpl.TrendData.SimilarTemplates, ShouldBeEmpty)
		})

		Convey("When merged over a stored version", func() {
			created := now.Add(-24 * time.Hour)
			stored := tpl.Clone()
			stored.CreatedAt = created
			stored.TrendData.VelocityScore = 42
			stored.TrendData.SimilarTemplates = []string{"v9"}
			stored.TrendData.DailyViews = map[string]int64{"2024-03-09": 400, "2024-03-10": 5000}

			merged := extract.MergeTemplate(stored, tpl, now)

			Convey("Then metrics and neighbours survive", func() {
				So(merged.CreatedAt, ShouldEqual, created)
				So(merged.TrendData.VelocityScore, ShouldEqual, 42)
				So(merged.TrendData.SimilarTemplates, ShouldResemble, []string{"v9"})
				So(merged.TrendData.DailyViews, ShouldResemble, map[string]int64{"2024-03-09": 400, "2024-03-10": 5000})
				So(merged.Analysis.Category, ShouldEqual, "dance")
			})
		})
	})
}
