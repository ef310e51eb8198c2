package model

import "time"

// Priority is the advisory processing priority assigned by the prioritizer.
type Priority string

// Priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities ascending: high=1, medium=2, low=3.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Provenance records where and why an entity was extracted.
type Provenance struct {
	ExtractedFrom       string    `json:"extractedFrom"`
	ExtractionPriority  Priority  `json:"extractionPriority"`
	ExtractionReason    string    `json:"extractionReason"`
	ProcessingTimestamp time.Time `json:"processingTimestamp"`
}
