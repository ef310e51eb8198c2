package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/trendetl/internal/adapters/analyzer"
	"github.com/okian/trendetl/internal/adapters/http/api"
	"github.com/okian/trendetl/internal/adapters/http/swagger"
	"github.com/okian/trendetl/internal/adapters/repository"
	"github.com/okian/trendetl/internal/adapters/repository/sqlite"
	"github.com/okian/trendetl/internal/adapters/source"
	service "github.com/okian/trendetl/internal/app"
	"github.com/okian/trendetl/internal/config"
	"github.com/okian/trendetl/internal/domain/similarity"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/okian/trendetl/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Minute // wait=true holds the connection for a whole job
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "engine stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "store close failed", logger.Error(err))
		}
	}()

	svc, err := newEngine(cfg, store, log)
	if err != nil {
		return err
	}

	// Engine runs stop with this context; the store outlives them.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go startSystemMetricsUpdater(ctx)

	// One pass at startup, then on the configured interval.
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if _, err := svc.RunFull(ctx); err != nil {
			log.Warn(ctx, "startup pass failed", logger.Error(err))
		}
		svc.Start(ctx, cfg.RunInterval())
	}()

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(ctx, svc, service.JobTypes, log.Named("api")).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	// Cancelled runs seal their jobs before the store is closed.
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "engine drain failed", logger.Error(err))
	}
	select {
	case <-engineDone:
	case <-shutdownCtx.Done():
	}

	log.Info(shutdownCtx, "server stopped")
	return runErr
}

// openStore opens the configured persistent store.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath, sqlite.WithLogger(log.Named("sqlite")))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	default:
		return repository.NewMemory(), nil
	}
}

// newEngine wires the video source, analyzer and engine from cfg.
func newEngine(cfg *config.Config, store repository.Store, log logger.Logger) (*service.Service, error) {
	var src source.VideoSource
	if cfg.SourcePath != "" {
		src = source.NewFileSource(cfg.SourcePath, source.WithFileLogger(log.Named("source")))
	} else {
		src = source.NewGenerator(
			source.WithCount(cfg.GeneratorCount),
			source.WithGeneratorLogger(log.Named("source")),
		)
	}

	an := analyzer.NewThrottled(
		analyzer.NewSimulated(analyzer.WithLatencyRange(
			time.Duration(cfg.AnalyzerLatencyMinMS)*time.Millisecond,
			time.Duration(cfg.AnalyzerLatencyMaxMS)*time.Millisecond,
		)),
		analyzer.WithRate(cfg.AnalyzerRPS, cfg.AnalyzerBurst),
		analyzer.WithTimeout(cfg.AnalyzerTimeout()),
		analyzer.WithLogger(log.Named("analyzer")),
	)

	svc, err := service.New(store, src, an,
		service.WithLogger(log.Named("engine")),
		service.WithBatchSize(cfg.BatchSize),
		service.WithInterBatchDelay(cfg.InterBatchDelay()),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithSimilarity(cfg.SimilarityMinScore, cfg.SimilarityMaxResults),
		service.WithSimilarityOptions(
			similarity.WithCandidateCap(cfg.SimilarityCandidateCap),
			similarity.WithCacheSize(cfg.SimilarityCacheSize),
		),
		service.WithReportTopN(cfg.ReportTopN),
		service.WithTrendingTopN(cfg.TrendingTopN),
	)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	return svc, nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
