package service

import "errors"

// Service errors.
var (
	// ErrNoVideos is returned inside a job-fatal error when the video source
	// yields nothing to process.
	ErrNoVideos = errors.New("video source returned no videos")

	// ErrUnknownJobType is returned by Trigger for an unknown job type.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrShuttingDown is returned for runs requested after Shutdown.
	ErrShuttingDown = errors.New("engine is shutting down")
)
