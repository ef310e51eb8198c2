package model

import (
	"sort"
	"time"
)

// DateLayout is the daily granularity key used by usage histories.
const DateLayout = "2006-01-02"

// Day formats t as a history key in UTC.
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDay parses a history key.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// SortedDays returns the valid keys of h in ascending date order.
// Unparseable keys are dropped.
func SortedDays(h map[string]int64) []string {
	days := make([]string, 0, len(h))
	for k := range h {
		if _, err := ParseDay(k); err == nil {
			days = append(days, k)
		}
	}
	// ISO dates sort lexically.
	sort.Strings(days)
	return days
}
