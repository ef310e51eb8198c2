package model

import "time"

// TrendReport is an immutable snapshot produced at the end of a full pass.
type TrendReport struct {
	ID                string         `json:"id"`
	Date              string         `json:"date"`
	TopSounds         TopSounds      `json:"topSounds"`
	EmergingSounds    []string       `json:"emergingSounds"`
	PeakingSounds     []string       `json:"peakingSounds"`
	DecliningTrends   []string       `json:"decliningTrends"`
	GenreDistribution map[string]int `json:"genreDistribution"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// TopSounds lists sound IDs ranked per time window.
type TopSounds struct {
	Daily   []string `json:"daily"`
	Weekly  []string `json:"weekly"`
	Monthly []string `json:"monthly"`
}
