package sanitize_test

import (
	"testing"

	"github.com/okian/trendetl/internal/domain/sanitize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromAny(t *testing.T) {
	Convey("Given a mixed payload", t, func() {
		raw := map[string]any{
			"n":     nil,
			"flag":  true,
			"count": 3,
			"tags":  []string{"a", "b"},
			"obj":   map[string]any{"x": 1.5},
		}
		n := sanitize.FromAny(raw)

		Convey("Then each value gets its kind", func() {
			So(n.Kind, ShouldEqual, sanitize.Object)
			So(n.Get("n").Kind, ShouldEqual, sanitize.Null)
			So(n.Get("missing").Kind, ShouldEqual, sanitize.Null)
			So(n.Get("flag").Bool, ShouldBeTrue)
			So(n.Get("count").Num, ShouldEqual, 3)
			So(n.Get("tags").Kind, ShouldEqual, sanitize.List)
			So(n.Get("tags").Items[1].Str, ShouldEqual, "b")
			So(n.Get("obj").Get("x").Num, ShouldEqual, 1.5)
			So(n.Keys(), ShouldResemble, []string{"count", "flag", "n", "obj", "tags"})
		})

		Convey("Then converting back keeps the values", func() {
			back := n.ToAny().(map[string]any)
			So(back["count"], ShouldEqual, 3.0)
			So(back["n"], ShouldBeNil)
		})
	})

	Convey("Unencodable values become null", t, func() {
		So(sanitize.FromAny(make(chan int)).Kind, ShouldEqual, sanitize.Null)
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given a sloppy analyzer payload", t, func() {
		raw := map[string]any{
			"sections": map[string]any{"type": "hook", "startTime": "0", "endTime": 3},
			"category": nil,
			"detectedElements": []any{"text overlay", nil, 7, ""},
			"engagementInsights": "strong hook",
			"similarityPatterns": map[string]any{"pace": "fast"},
			"extra": "kept",
		}
		in := sanitize.FromAny(raw)
		out := sanitize.Normalize(in)

		Convey("Then every known key has its canonical shape", func() {
			So(out.Get("sections").Kind, ShouldEqual, sanitize.List)
			So(out.Get("sections").Items, ShouldHaveLength, 1)
			So(out.Get("category").Str, ShouldEqual, sanitize.DefaultCategory)
			So(out.Get("engagementInsights").Items, ShouldHaveLength, 1)
			So(out.Get("similarityPatterns").Kind, ShouldEqual, sanitize.String)
			So(out.Get("similarityPatterns").Str, ShouldEqual, `{"pace":"fast"}`)
			So(out.Get("extra").Str, ShouldEqual, "kept")
		})

		Convey("Then the input tree is left as it was", func() {
			So(in.Get("category").Kind, ShouldEqual, sanitize.Null)
			So(in.Get("engagementInsights").Kind, ShouldEqual, sanitize.String)
		})

		Convey("Then decoding yields a typed analysis", func() {
			a := sanitize.Decode(out)
			So(a.Category, ShouldEqual, "general")
			So(a.Sections[0].Type, ShouldEqual, "hook")
			So(a.Sections[0].StartTime, ShouldEqual, 0)
			So(a.Sections[0].EndTime, ShouldEqual, 3)
			So(a.DetectedElements, ShouldResemble, []string{"text overlay", "7"})
			So(a.EngagementInsights, ShouldResemble, []string{"strong hook"})
		})
	})

	Convey("Given an empty payload", t, func() {
		a := sanitize.Analysis(nil)

		Convey("Then the analysis has empty lists and defaults", func() {
			So(a.Category, ShouldEqual, sanitize.DefaultCategory)
			So(a.Sections, ShouldNotBeNil)
			So(a.Sections, ShouldBeEmpty)
			So(a.EngagementInsights, ShouldBeEmpty)
			So(a.SimilarityPatterns, ShouldEqual, "")
		})
	})

	Convey("Sections ending before they start are clamped", t, func() {
		a := sanitize.Analysis(map[string]any{
			"sections": []any{map[string]any{"startTime": 5, "endTime": 2}, "not a section"},
		})
		So(a.Sections, ShouldHaveLength, 1)
		So(a.Sections[0].Type, ShouldEqual, "segment")
		So(a.Sections[0].EndTime, ShouldEqual, 5)
	})
}
