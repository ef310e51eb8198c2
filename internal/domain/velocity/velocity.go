// Package velocity estimates multi-window growth rates from a daily usage
// history.
package velocity

import (
	"time"

	"github.com/okian/trendetl/internal/domain/model"
)

// Windows in days.
const (
	Window7  = 7
	Window14 = 14
	Window30 = 30
)

// Tolerance is how far from the window target a base date may be.
const Tolerance = 3 * 24 * time.Hour

const day = 24 * time.Hour

// Result is the outcome of estimating one history.
// A window whose Sufficient flag is false has velocity 0 meaning
// "insufficient data", not "no growth".
type Result struct {
	Velocity7d    float64
	Velocity14d   float64
	Velocity30d   float64
	Sufficient7d  bool
	Sufficient14d bool
	Sufficient30d bool
	Trend         model.Trend
	PeakUsage     int64
	PeakDate      string
	Latest        int64
	LatestDate    string
	Length        int
	OK            bool
}

type point struct {
	day   string
	at    time.Time
	value int64
}

func points(history map[string]int64) []point {
	days := model.SortedDays(history)
	pts := make([]point, 0, len(days))
	for _, d := range days {
		at, _ := model.ParseDay(d)
		pts = append(pts, point{day: d, at: at, value: history[d]})
	}
	return pts
}

// Estimate estimates history. Fewer than two valid dates yields OK=false and
// zero velocities; peak and latest are still filled when one date exists.
func Estimate(history map[string]int64) Result {
	pts := points(history)
	est := Result{Trend: model.TrendStable, Length: len(pts)}
	if len(pts) == 0 {
		return est
	}

	latest := pts[len(pts)-1]
	est.Latest = latest.value
	est.LatestDate = latest.day
	est.PeakUsage, est.PeakDate = peak(pts)

	if len(pts) < 2 {
		return est
	}
	est.OK = true

	est.Velocity7d, est.Sufficient7d = window(pts, Window7)
	est.Velocity14d, est.Sufficient14d = window(pts, Window14)
	est.Velocity30d, est.Sufficient30d = window(pts, Window30)

	switch {
	case est.Velocity7d > 0:
		est.Trend = model.TrendRising
	case est.Velocity7d < 0:
		est.Trend = model.TrendFalling
	}
	return est
}

// window returns the velocity over w days and whether a base date was found.
func window(pts []point, w int) (float64, bool) {
	latest := pts[len(pts)-1]
	base, ok := baseFor(pts, latest.at.AddDate(0, 0, -w))
	if !ok {
		return 0, false
	}
	daysDiff := latest.at.Sub(base.at).Hours() / 24
	if daysDiff <= 0 {
		return 0, true
	}
	return float64(latest.value-base.value) / daysDiff, true
}

// baseFor finds the date closest to target within Tolerance. Ties go to the
// earlier date. The latest point is never a base.
func baseFor(pts []point, target time.Time) (point, bool) {
	var (
		best  point
		bestD time.Duration
		found bool
	)
	for _, p := range pts[:len(pts)-1] {
		d := p.at.Sub(target)
		if d < 0 {
			d = -d
		}
		if d > Tolerance {
			continue
		}
		if !found || d < bestD {
			best, bestD, found = p, d, true
		}
	}
	return best, found
}

// peak returns the maximum value and its earliest date.
func peak(pts []point) (int64, string) {
	best := pts[0]
	for _, p := range pts[1:] {
		if p.value > best.value {
			best = p
		}
	}
	return best.value, best.day
}

// BaseValue returns the value at the base date of window w, if any.
func BaseValue(history map[string]int64, w int) (int64, bool) {
	pts := points(history)
	if len(pts) < 2 {
		return 0, false
	}
	base, ok := baseFor(pts, pts[len(pts)-1].at.AddDate(0, 0, -w))
	return base.value, ok
}

// DailyGrowth is the change between the two most recent points divided by
// the days between them.
func DailyGrowth(history map[string]int64) float64 {
	pts := points(history)
	if len(pts) < 2 {
		return 0
	}
	last, prev := pts[len(pts)-1], pts[len(pts)-2]
	days := last.at.Sub(prev.at) / day
	if days <= 0 {
		return 0
	}
	return float64(last.value-prev.value) / float64(days)
}

// Apply writes est into the sound's stats, flagging windows without a base
// date as insufficient.
func Apply(s *model.Sound, est Result) {
	ApplyUsage(s, est)
	s.Stats.GrowthVelocity7d = est.Velocity7d
	s.Stats.GrowthVelocity14d = est.Velocity14d
	s.Stats.GrowthVelocity30d = est.Velocity30d
	s.Stats.Insufficient7d = !est.Sufficient7d
	s.Stats.Insufficient14d = !est.Sufficient14d
	s.Stats.Insufficient30d = !est.Sufficient30d
	s.Stats.Trend = est.Trend
}

// ApplyUsage writes only the latest usage and the peak. It is what a history
// too short for velocities supports.
func ApplyUsage(s *model.Sound, est Result) {
	s.Stats.UsageCount = est.Latest
	s.Stats.PeakUsage = est.PeakUsage
	s.Stats.PeakDate = est.PeakDate
}
