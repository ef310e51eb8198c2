package velocity_test

import (
	"testing"

	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/internal/domain/velocity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEstimate(t *testing.T) {
	Convey("Given a month of steady growth", t, func() {
		h := map[string]int64{
			"2024-03-01": 100,
			"2024-03-17": 240,
			"2024-03-24": 310,
			"2024-03-31": 380,
		}
		est := velocity.Estimate(h)

		Convey("Then every window finds its exact base", func() {
			So(est.OK, ShouldBeTrue)
			So(est.Velocity7d, ShouldEqual, 10)
			So(est.Velocity14d, ShouldEqual, 10)
			So(est.Velocity30d, ShouldAlmostEqual, 280.0/30, 1e-9)
			So(est.Sufficient7d && est.Sufficient14d && est.Sufficient30d, ShouldBeTrue)
		})

		Convey("Then trend, peak and latest are reported", func() {
			So(est.Trend, ShouldEqual, model.TrendRising)
			So(est.PeakUsage, ShouldEqual, 380)
			So(est.PeakDate, ShouldEqual, "2024-03-31")
			So(est.LatestDate, ShouldEqual, "2024-03-31")
			So(est.Length, ShouldEqual, 4)
		})

		Convey("Then a second run on the same input is identical", func() {
			So(velocity.Estimate(h), ShouldResemble, est)
		})
	})

	Convey("Given a base two days off the target", t, func() {
		est := velocity.Estimate(map[string]int64{"2024-03-01": 10, "2024-03-05": 50})

		Convey("Then the 7-day window uses it with the actual day distance", func() {
			So(est.Velocity7d, ShouldEqual, 10)
			So(est.Sufficient7d, ShouldBeTrue)
		})

		Convey("Then longer windows report insufficient data", func() {
			So(est.Velocity14d, ShouldEqual, 0)
			So(est.Sufficient14d, ShouldBeFalse)
			So(est.Sufficient30d, ShouldBeFalse)
		})
	})

	Convey("Given two dates equidistant from the target", t, func() {
		est := velocity.Estimate(map[string]int64{"2024-03-20": 100, "2024-03-24": 200, "2024-03-29": 500})

		Convey("Then the earlier date is the base", func() {
			So(est.Velocity7d, ShouldAlmostEqual, 400.0/9, 1e-9)
		})
	})

	Convey("Given a shrinking history", t, func() {
		est := velocity.Estimate(map[string]int64{"2024-03-01": 500, "2024-03-08": 300})

		So(est.Velocity7d, ShouldAlmostEqual, -200.0/7, 1e-9)
		So(est.Trend, ShouldEqual, model.TrendFalling)
		So(est.PeakDate, ShouldEqual, "2024-03-01")
	})

	Convey("Given a tie at the peak", t, func() {
		est := velocity.Estimate(map[string]int64{"2024-03-01": 5, "2024-03-02": 9, "2024-03-03": 9})

		So(est.PeakUsage, ShouldEqual, 9)
		So(est.PeakDate, ShouldEqual, "2024-03-02")
		So(est.Trend, ShouldEqual, model.TrendStable)
	})

	Convey("Given a single date", t, func() {
		var est velocity.Result
		So(func() { est = velocity.Estimate(map[string]int64{"2024-03-01": 7}) }, ShouldNotPanic)

		Convey("Then the estimate reports insufficient data", func() {
			So(est.OK, ShouldBeFalse)
			So(est.Velocity7d, ShouldEqual, 0)
			So(est.Velocity14d, ShouldEqual, 0)
			So(est.Velocity30d, ShouldEqual, 0)
			So(est.PeakUsage, ShouldEqual, 7)
		})
	})

	Convey("Given an empty or invalid history", t, func() {
		So(velocity.Estimate(nil).OK, ShouldBeFalse)
		So(velocity.Estimate(map[string]int64{"bad": 1, "2024-03-01": 2}).Length, ShouldEqual, 1)
	})
}

func TestDailyGrowth(t *testing.T) {
	Convey("Daily growth divides the last change by the gap in days", t, func() {
		So(velocity.DailyGrowth(map[string]int64{"2024-03-01": 10, "2024-03-03": 30}), ShouldEqual, 10)
		So(velocity.DailyGrowth(map[string]int64{"2024-03-01": 10}), ShouldEqual, 0)
	})
}

func TestBaseValueAndApply(t *testing.T) {
	Convey("Given a sound with a two-week history", t, func() {
		h := map[string]int64{"2024-03-01": 40, "2024-03-08": 100}
		base, ok := velocity.BaseValue(h, velocity.Window7)
		So(ok, ShouldBeTrue)
		So(base, ShouldEqual, 40)

		s := &model.Sound{UsageHistory: h}
		velocity.Apply(s, velocity.Estimate(h))
		So(s.Stats.UsageCount, ShouldEqual, 100)
		So(s.Stats.Trend, ShouldEqual, model.TrendRising)
		So(s.Stats.PeakDate, ShouldEqual, "2024-03-08")
		So(s.Stats.Insufficient7d, ShouldBeFalse)
		So(s.Stats.Insufficient14d, ShouldBeTrue)
		So(s.Stats.Insufficient30d, ShouldBeTrue)
	})

	Convey("ApplyUsage leaves velocities and trend untouched", t, func() {
		s := &model.Sound{Stats: model.SoundStats{GrowthVelocity7d: 5, Trend: model.TrendRising}}
		velocity.ApplyUsage(s, velocity.Estimate(map[string]int64{"2024-03-10": 100}))
		So(s.Stats.UsageCount, ShouldEqual, 100)
		So(s.Stats.PeakUsage, ShouldEqual, 100)
		So(s.Stats.PeakDate, ShouldEqual, "2024-03-10")
		So(s.Stats.GrowthVelocity7d, ShouldEqual, 5)
		So(s.Stats.Trend, ShouldEqual, model.TrendRising)
	})
}
