package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/trendetl/internal/adapters/http/api"
	"github.com/okian/trendetl/internal/adapters/http/swagger"
	service "github.com/okian/trendetl/internal/app"
	"github.com/okian/trendetl/internal/config"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func testConfig(t *testing.T) *config.Config {
	t.Setenv("TRENDETL_ADDR", ":0")
	t.Setenv("TRENDETL_GENERATOR_COUNT", "30")
	t.Setenv("TRENDETL_INTER_BATCH_DELAY_MS", "0")
	t.Setenv("TRENDETL_WORKER_COUNT", "4")
	t.Setenv("TRENDETL_ANALYZER_RPS", "10000")
	t.Setenv("TRENDETL_ANALYZER_BURST", "100")
	t.Setenv("TRENDETL_ANALYZER_LATENCY_MIN_MS", "0")
	t.Setenv("TRENDETL_ANALYZER_LATENCY_MAX_MS", "0")
	cfg, err := config.Load(context.Background())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestMainWiring(t *testing.T) {
	cfg := testConfig(t)

	convey.Convey("Given configuration loaded from the environment", t, func() {
		convey.So(cfg.Addr, convey.ShouldEqual, ":0")
		convey.So(cfg.GeneratorCount, convey.ShouldEqual, 30)
		convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		convey.So(cfg.InterBatchDelay(), convey.ShouldBeZeroValue)

		convey.Convey("When the memory store is selected", func() {
			store, err := openStore(context.Background(), cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			svc, err := newEngine(cfg, store, logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			mux := http.NewServeMux()
			swagger.Register(context.Background(), mux)
			api.NewServer(context.Background(), svc, service.JobTypes, logger.Nop()).Register(mux)
			srv := httptest.NewServer(mux)
			defer srv.Close()

			convey.Convey("Then a full pass can be run over HTTP", func() {
				resp, err := http.Post(srv.URL+"/jobs/full_pass?wait=true", "application/json", http.NoBody)
				convey.So(err, convey.ShouldBeNil)
				defer resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

				var j model.Job
				convey.So(json.NewDecoder(resp.Body).Decode(&j), convey.ShouldBeNil)
				convey.So(j.Status, convey.ShouldEqual, model.JobCompleted)
				convey.So(j.Result.OutputIDs, convey.ShouldHaveLength, 6)

				latest, err := http.Get(srv.URL + "/reports/latest")
				convey.So(err, convey.ShouldBeNil)
				latest.Body.Close()
				convey.So(latest.StatusCode, convey.ShouldEqual, http.StatusOK)

				docs, err := http.Get(srv.URL + "/openapi.yaml")
				convey.So(err, convey.ShouldBeNil)
				docs.Body.Close()
				convey.So(docs.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When the sqlite store is selected", func() {
			sqliteCfg := *cfg
			sqliteCfg.StoreDriver = config.StoreSQLite
			sqliteCfg.SQLitePath = filepath.Join(t.TempDir(), "engine.db")

			store, err := openStore(context.Background(), &sqliteCfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			convey.Convey("Then the engine can be built over it", func() {
				svc, err := newEngine(&sqliteCfg, store, logger.Nop())
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a source file is configured", func() {
			fileCfg := *cfg
			fileCfg.SourcePath = filepath.Join(t.TempDir(), "missing.json")

			store, err := openStore(context.Background(), &fileCfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			svc, err := newEngine(&fileCfg, store, logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then an unreadable file fails the pass", func() {
				j, err := svc.RunFull(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(j.Status, convey.ShouldEqual, model.JobFailed)
			})
		})
	})
}

func TestRunDrainsBeforeClosingStore(t *testing.T) {
	cfg := testConfig(t)
	if err := logger.InitWithWriter(io.Discard); err != nil {
		t.Fatalf("init logger: %v", err)
	}

	convey.Convey("Given the service running over sqlite with a slow startup pass", t, func() {
		runCfg := *cfg
		runCfg.Addr = "127.0.0.1:0"
		runCfg.StoreDriver = config.StoreSQLite
		runCfg.SQLitePath = filepath.Join(t.TempDir(), "engine.db")
		runCfg.GeneratorCount = 60
		runCfg.InterBatchDelayMS = 1000

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, &runCfg) }()

		convey.Convey("When it is stopped mid-pass", func() {
			time.Sleep(500 * time.Millisecond)
			cancel()

			var err error
			select {
			case err = <-done:
			case <-time.After(shutdownTimeout):
				t.Fatal("run did not return")
			}
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then no job is left running", func() {
				store, err := openStore(context.Background(), &runCfg, logger.Nop())
				convey.So(err, convey.ShouldBeNil)
				defer store.Close()

				jobs, err := store.Jobs().List(context.Background(), "", 0)
				convey.So(err, convey.ShouldBeNil)
				convey.So(jobs, convey.ShouldNotBeEmpty)
				for _, j := range jobs {
					convey.So(j.Status, convey.ShouldNotEqual, model.JobRunning)
				}
			})
		})
	})
}
