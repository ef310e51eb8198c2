package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/trendetl/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPriorityRank(t *testing.T) {
	Convey("Priorities rank high before medium before low", t, func() {
		So(model.PriorityHigh.Rank(), ShouldEqual, 1)
		So(model.PriorityMedium.Rank(), ShouldEqual, 2)
		So(model.PriorityLow.Rank(), ShouldEqual, 3)
		So(model.Priority("bogus").Rank(), ShouldEqual, 3)
	})
}

func TestSortedDays(t *testing.T) {
	Convey("Given a history with an invalid key", t, func() {
		h := map[string]int64{"2024-03-02": 5, "2024-02-28": 1, "not-a-date": 9, "2024-03-01": 3}

		Convey("Then only valid days come back in ascending order", func() {
			So(model.SortedDays(h), ShouldResemble, []string{"2024-02-28", "2024-03-01", "2024-03-02"})
		})
	})
}

func TestVideoStats(t *testing.T) {
	Convey("Given stats with a missing share count", t, func() {
		s := model.VideoStats{DiggCount: model.Float(30), CommentCount: model.Float(30)}

		Convey("Then engagement treats missing as zero", func() {
			So(s.Engagement(), ShouldEqual, 20)
			So(s.Plays(), ShouldEqual, 0)
		})
	})
}

func TestClones(t *testing.T) {
	Convey("Given a sound and its clone", t, func() {
		s := &model.Sound{
			ID:            "s1",
			UsageHistory:  map[string]int64{"2024-01-01": 1},
			TemplateUsage: []model.TemplateUsage{{TemplateID: "v1", UseCount: 1}},
		}
		c := s.Clone()
		c.UsageHistory["2024-01-02"] = 2
		c.TemplateUsage[0].UseCount = 9

		Convey("Then mutating the clone leaves the original intact", func() {
			So(s.UsageHistory, ShouldHaveLength, 1)
			So(s.TemplateUsage[0].UseCount, ShouldEqual, 1)
			So(s.HasTemplate("v1"), ShouldBeTrue)
			So(s.HasTemplate("v2"), ShouldBeFalse)
		})
	})

	Convey("Given a template and its clone", t, func() {
		tpl := &model.Template{ID: "t1", TrendData: model.TrendData{SimilarTemplates: []string{"t2"}}}
		c := tpl.Clone()
		c.TrendData.SimilarTemplates[0] = "t3"

		So(tpl.TrendData.SimilarTemplates[0], ShouldEqual, "t2")
	})
}

func TestJobResultMerge(t *testing.T) {
	Convey("Merging results adds counts and concatenates ids", t, func() {
		r := model.JobResult{Processed: 1, OutputIDs: []string{"a"}}
		r.Merge(model.JobResult{Processed: 2, Failed: 1, Skipped: 3, OutputIDs: []string{"b"},
			ByPriority: map[model.Priority]int{model.PriorityHigh: 2}})

		So(r.Total(), ShouldEqual, 7)
		So(r.OutputIDs, ShouldResemble, []string{"a", "b"})
		So(r.ByPriority[model.PriorityHigh], ShouldEqual, 2)
		So(model.JobCompleted.Terminal(), ShouldBeTrue)
		So(model.JobRunning.Terminal(), ShouldBeFalse)
	})
}

func TestRawVideoCreateTime(t *testing.T) {
	Convey("Given scraped records with differently typed creation times", t, func() {
		decode := func(raw string) (model.RawVideo, error) {
			var v model.RawVideo
			err := json.Unmarshal([]byte(raw), &v)
			return v, err
		}

		Convey("An RFC 3339 string is parsed", func() {
			v, err := decode(`{"id":"v1","createTime":"2024-03-10T12:00:00Z"}`)
			So(err, ShouldBeNil)
			So(v.CreateTime.Equal(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("Unix seconds are parsed", func() {
			v, err := decode(`{"id":"v1","createTime":1700000000,"stats":{"playCount":5}}`)
			So(err, ShouldBeNil)
			So(v.ID, ShouldEqual, "v1")
			So(v.CreateTime.Unix(), ShouldEqual, 1700000000)
			So(v.Stats.Plays(), ShouldEqual, 5)
		})

		Convey("A missing or null value is the zero time", func() {
			v, err := decode(`{"id":"v1","createTime":null}`)
			So(err, ShouldBeNil)
			So(v.CreateTime.IsZero(), ShouldBeTrue)
		})

		Convey("Other types are rejected", func() {
			_, err := decode(`{"id":"v1","createTime":true}`)
			So(err, ShouldNotBeNil)
		})

		Convey("Encoding round trips through the string form", func() {
			in := model.RawVideo{ID: "v1", CreateTime: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)}
			b, err := json.Marshal(in)
			So(err, ShouldBeNil)
			out, err := decode(string(b))
			So(err, ShouldBeNil)
			So(out.CreateTime.Equal(in.CreateTime), ShouldBeTrue)
		})
	})
}
