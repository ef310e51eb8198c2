package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/trendetl/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigDefaults(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have engine defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.BatchSize, convey.ShouldEqual, 10)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 10)
			convey.So(cfg.InterBatchDelay(), convey.ShouldEqual, time.Second)
			convey.So(cfg.SimilarityCandidateCap, convey.ShouldEqual, 200)
			convey.So(cfg.SimilarityMinScore, convey.ShouldEqual, 0.6)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BatchSize, convey.ShouldEqual, 10)
				convey.So(cfg.ReportTopN, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading with environment variables", func() {
			_ = os.Setenv("TRENDETL_ADDR", ":8080")
			_ = os.Setenv("TRENDETL_BATCH_SIZE", "5")
			_ = os.Setenv("TRENDETL_INTER_BATCH_DELAY_MS", "0")
			_ = os.Setenv("TRENDETL_SIMILARITY_MIN_SCORE", "0.75")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env overrides defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BatchSize, convey.ShouldEqual, 5)
				convey.So(cfg.InterBatchDelay(), convey.ShouldEqual, time.Duration(0))
				convey.So(cfg.SimilarityMinScore, convey.ShouldEqual, 0.75)
			})
		})

		convey.Convey("When loading with a YAML file and env", func() {
			tmpFile := createTempConfigFile(`
# engine settings
store_driver: sqlite
sqlite_path: /tmp/trends.db
batch_size: 20
worker_count: 4
report_top_n: 25
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TRENDETL_CONFIG", tmpFile)
			_ = os.Setenv("TRENDETL_WORKER_COUNT", "8")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over file and file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/tmp/trends.db")
				convey.So(cfg.BatchSize, convey.ShouldEqual, 20)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.ReportTopN, convey.ShouldEqual, 25)
				convey.So(cfg.SimilarityCandidateCap, convey.ShouldEqual, 200)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TRENDETL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("TRENDETL_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("TRENDETL_BATCH_SIZE", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		cases := map[string]string{
			"TRENDETL_ADDR":                 "",
			"TRENDETL_BATCH_SIZE":           "0",
			"TRENDETL_STORE_DRIVER":         "postgres",
			"TRENDETL_SIMILARITY_MIN_SCORE": "1.5",
		}
		for key, value := range cases {
			_ = os.Setenv(key, value)
			cfg, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
			_ = os.Unsetenv(key)
		}
	})
}

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"TRENDETL_CONFIG",
		"TRENDETL_ADDR",
		"TRENDETL_BATCH_SIZE",
		"TRENDETL_INTER_BATCH_DELAY_MS",
		"TRENDETL_SIMILARITY_MIN_SCORE",
		"TRENDETL_WORKER_COUNT",
		"TRENDETL_STORE_DRIVER",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "trendetl-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
