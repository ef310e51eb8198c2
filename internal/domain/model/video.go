// Package model contains the entities passed between engine layers.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// RawVideo is one scraped short-video record as produced by the video source.
// Numeric fields are pointers so a missing value is distinguishable from zero.
type RawVideo struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	CreateTime time.Time  `json:"createTime"`
	AuthorMeta AuthorMeta `json:"authorMeta"`
	VideoMeta  VideoMeta  `json:"videoMeta"`
	Hashtags   []string   `json:"hashtags"`
	Stats      VideoStats `json:"stats"`
	VideoURL   string     `json:"videoUrl"`
	Music      *MusicMeta `json:"music,omitempty"`
}

// UnmarshalJSON accepts createTime as an RFC 3339 string or as unix seconds,
// the form most scrapers emit.
func (v *RawVideo) UnmarshalJSON(b []byte) error {
	type plain RawVideo
	aux := struct {
		*plain
		CreateTime json.RawMessage `json:"createTime"`
	}{plain: (*plain)(v)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t, err := parseCreateTime(aux.CreateTime)
	if err != nil {
		return err
	}
	v.CreateTime = t
	return nil
}

func parseCreateTime(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var t time.Time
		if err := json.Unmarshal(raw, &t); err != nil {
			return time.Time{}, fmt.Errorf("createTime: %w", err)
		}
		return t, nil
	}
	var secs float64
	if err := json.Unmarshal(raw, &secs); err != nil {
		return time.Time{}, fmt.Errorf("createTime: %w", err)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

// AuthorMeta identifies the uploader.
type AuthorMeta struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// VideoMeta holds technical video attributes.
type VideoMeta struct {
	Duration *float64 `json:"duration"`
}

// VideoStats holds engagement counters.
type VideoStats struct {
	PlayCount    *float64 `json:"playCount"`
	DiggCount    *float64 `json:"diggCount"`
	ShareCount   *float64 `json:"shareCount"`
	CommentCount *float64 `json:"commentCount"`
}

// MusicMeta describes the audio attached to a video.
type MusicMeta struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	UsageCount *float64 `json:"usageCount,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
	PlayURL    string   `json:"playUrl,omitempty"`
	CoverURL   string   `json:"coverMediumUrl,omitempty"`
	Genre      string   `json:"genre,omitempty"`
}

// Plays returns the play count, zero when missing.
func (s VideoStats) Plays() float64 { return deref(s.PlayCount) }

// Likes returns the like count, zero when missing.
func (s VideoStats) Likes() float64 { return deref(s.DiggCount) }

// Engagement is the mean of like, share and comment counts.
func (s VideoStats) Engagement() float64 {
	return (deref(s.DiggCount) + deref(s.ShareCount) + deref(s.CommentCount)) / 3
}

// MusicUsage returns the attached audio usage count, zero when absent.
func (v *RawVideo) MusicUsage() float64 {
	if v.Music == nil {
		return 0
	}
	return deref(v.Music.UsageCount)
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Float returns a pointer to v. Used to build records in code and tests.
func Float(v float64) *float64 { return &v }
