package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/trendetl/internal/seeding"
)

// Default configuration constants.
const (
	defaultVideos    = 500
	defaultSounds    = 40
	defaultSeed      = 42
	defaultMalformed = 5
	defaultWorkers   = 4
	defaultTimeout   = 10 * time.Minute
)

func main() {
	var (
		outputFile = flag.String("out", "videos.json", "Output file for generated videos")
		videos     = flag.Int("videos", defaultVideos, "Number of videos to generate")
		sounds     = flag.Int("sounds", defaultSounds, "Size of the sound pool")
		seed       = flag.Int64("seed", defaultSeed, "Generator seed")
		malformed  = flag.Int("malformed", defaultMalformed, "Percentage of videos written without play counts")
		baseURL    = flag.String("url", "", "Engine base URL to smoke test; empty skips the check")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		workers    = flag.Int("workers", defaultWorkers, "Concurrent sound lookups during verification")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Log every verified sound")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeding.ShowHelp()
		return
	}

	if err := seeding.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &seeding.Config{
		OutputFile:       *outputFile,
		Videos:           *videos,
		Sounds:           *sounds,
		Seed:             *seed,
		MalformedPercent: *malformed,
		BaseURL:          *baseURL,
		Timeout:          *timeout,
		Workers:          *workers,
		Verbose:          *verbose,
	}

	if _, err := seeding.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
