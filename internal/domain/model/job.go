package model

import (
	"maps"
	"slices"
	"time"
)

// JobStatus is the state of a tracked run.
type JobStatus string

// Job states. Completed and failed are terminal.
const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether s is a sealed state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is the process-wide record of one engine run.
type Job struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Status        JobStatus  `json:"status"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	Result        JobResult  `json:"result"`
	FailureReason string     `json:"failureReason,omitempty"`
}

// JobResult summarizes what a run produced.
type JobResult struct {
	Processed  int              `json:"processed"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	OutputIDs  []string         `json:"outputIds"`
	ByPriority map[Priority]int `json:"byPriority,omitempty"`
	Reasons    []string         `json:"reasons,omitempty"`
}

// Total is processed + failed + skipped.
func (r JobResult) Total() int {
	return r.Processed + r.Failed + r.Skipped
}

// Merge adds o into r.
func (r *JobResult) Merge(o JobResult) {
	r.Processed += o.Processed
	r.Failed += o.Failed
	r.Skipped += o.Skipped
	r.OutputIDs = append(r.OutputIDs, o.OutputIDs...)
	r.Reasons = append(r.Reasons, o.Reasons...)
	for p, n := range o.ByPriority {
		if r.ByPriority == nil {
			r.ByPriority = make(map[Priority]int)
		}
		r.ByPriority[p] += n
	}
}

// Clone returns a deep copy.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.EndTime != nil {
		end := *j.EndTime
		c.EndTime = &end
	}
	c.Result.OutputIDs = slices.Clone(j.Result.OutputIDs)
	c.Result.Reasons = slices.Clone(j.Result.Reasons)
	c.Result.ByPriority = maps.Clone(j.Result.ByPriority)
	return &c
}
