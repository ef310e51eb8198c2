// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and TRENDETL_ environment variables.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"time"
)

// Store drivers understood by the engine.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP control API listen address.
	Addr string `koanf:"addr"`

	// StoreDriver selects the persistent store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`

	// SourcePath points at a JSON array of raw videos. Empty means the
	// synthetic generator is used with GeneratorCount videos.
	SourcePath     string `koanf:"source_path"`
	GeneratorCount int    `koanf:"generator_count"`

	// Batch scheduling.
	BatchSize         int `koanf:"batch_size"`
	InterBatchDelayMS int `koanf:"inter_batch_delay_ms"`
	WorkerCount       int `koanf:"worker_count"`

	// AI analyzer throttling and simulated latency bounds.
	AnalyzerRPS          float64 `koanf:"analyzer_rps"`
	AnalyzerBurst        int     `koanf:"analyzer_burst"`
	AnalyzerTimeoutMS    int     `koanf:"analyzer_timeout_ms"`
	AnalyzerLatencyMinMS int     `koanf:"analyzer_latency_min_ms"`
	AnalyzerLatencyMaxMS int     `koanf:"analyzer_latency_max_ms"`

	// Similarity search.
	SimilarityMinScore     float64 `koanf:"similarity_min_score"`
	SimilarityMaxResults   int     `koanf:"similarity_max_results"`
	SimilarityCandidateCap int     `koanf:"similarity_candidate_cap"`
	SimilarityCacheSize    int     `koanf:"similarity_cache_size"`

	// Reporting.
	ReportTopN   int `koanf:"report_top_n"`
	TrendingTopN int `koanf:"trending_top_n"`

	// RunIntervalS schedules periodic full passes. Zero runs a single pass at startup.
	RunIntervalS int `koanf:"run_interval_s"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9090",
		StoreDriver:            StoreMemory,
		SQLitePath:             "trendetl.db",
		GeneratorCount:         200,
		BatchSize:              10,
		InterBatchDelayMS:      1000,
		WorkerCount:            10,
		AnalyzerRPS:            5,
		AnalyzerBurst:          5,
		AnalyzerTimeoutMS:      10_000,
		AnalyzerLatencyMinMS:   80,
		AnalyzerLatencyMaxMS:   150,
		SimilarityMinScore:     0.6,
		SimilarityMaxResults:   100,
		SimilarityCandidateCap: 200,
		SimilarityCacheSize:    4096,
		ReportTopN:             10,
		TrendingTopN:           20,
	}
}

// InterBatchDelay returns the configured pause between chunks.
func (c *Config) InterBatchDelay() time.Duration {
	return time.Duration(c.InterBatchDelayMS) * time.Millisecond
}

// AnalyzerTimeout returns the per-call analyzer timeout.
func (c *Config) AnalyzerTimeout() time.Duration {
	return time.Duration(c.AnalyzerTimeoutMS) * time.Millisecond
}

// RunInterval returns the periodic pass interval; zero disables the loop.
func (c *Config) RunInterval() time.Duration {
	return time.Duration(c.RunIntervalS) * time.Second
}

// Validate checks the values the engine cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch_size must be at least 1", ErrInvalidConfig)
	case c.InterBatchDelayMS < 0:
		return fmt.Errorf("%w: inter_batch_delay_ms must not be negative", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && c.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
	case c.SimilarityMinScore < 0 || c.SimilarityMinScore > 1:
		return fmt.Errorf("%w: similarity_min_score must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}
