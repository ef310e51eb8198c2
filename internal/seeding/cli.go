package seeding

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/trendetl/pkg/logger"
)

// SetupLogging initializes the global logger, teeing to logFile when set.
func SetupLogging(logFile string) error {
	if logFile == "" {
		if err := logger.Init(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	os.Stdout.WriteString(`Trend ETL seeding tool
======================

Writes a synthetic corpus of scraped videos for the engine's file source and
optionally smoke tests a running engine.

Usage:
  go run ./cmd/seed-videos [options]

Options:
  -out string
        Output file for generated videos (default "videos.json")
  -videos int
        Number of videos to generate (default 500)
  -sounds int
        Size of the sound pool (default 40)
  -seed int
        Generator seed (default 42)
  -malformed int
        Percentage of videos written without play counts (default 5)
  -url string
        Engine base URL to smoke test; empty skips the check
  -timeout duration
        HTTP request timeout (default 10m)
  -workers int
        Concurrent sound lookups during verification (default 4)
  -log string
        Also write logs to this file
  -verbose
        Log every verified sound
  -help
        Show this help message

Examples:
  # Write a corpus and point the engine at it
  go run ./cmd/seed-videos -out data/videos.json -videos 2000
  TRENDETL_SOURCE_PATH=data/videos.json go run ./cmd

  # Smoke test a running engine
  go run ./cmd/seed-videos -url http://localhost:9090 -verbose
`)
}
