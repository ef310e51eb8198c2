package seeding

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	OutputFile       string        // JSON array of raw videos to write
	Videos           int           // Number of videos to generate
	Sounds           int           // Size of the sound pool
	Seed             int64         // Generator seed
	MalformedPercent int           // Share of videos written without play counts
	BaseURL          string        // Engine to smoke test; empty skips the check
	Timeout          time.Duration // HTTP request timeout
	Workers          int           // Concurrent sound lookups
	Verbose          bool          // Log every fetched sound
}

// Stats holds run statistics.
type Stats struct {
	VideosGenerated int
	JobID           string
	JobStatus       string
	Processed       int
	Failed          int
	Skipped         int
	ReportID        string
	SoundsChecked   int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
