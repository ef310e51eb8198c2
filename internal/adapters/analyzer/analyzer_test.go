package analyzer_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/trendetl/internal/adapters/analyzer"
	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/internal/domain/sanitize"
	"github.com/okian/trendetl/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func video(id string) model.RawVideo {
	return model.RawVideo{
		ID:        id,
		Text:      "easy dance tutorial",
		VideoMeta: model.VideoMeta{Duration: model.Float(20)},
	}
}

func TestSimulated(t *testing.T) {
	Convey("Given a simulated analyzer without latency", t, func() {
		a := analyzer.NewSimulated(analyzer.WithLatencyRange(0, 0))

		Convey("Then the same video yields the same payload", func() {
			first, err := a.Analyze(context.Background(), video("v1"))
			So(err, ShouldBeNil)
			second, err := a.Analyze(context.Background(), video("v1"))
			So(err, ShouldBeNil)
			So(first, ShouldResemble, second)
			So(first["category"], ShouldEqual, "dance")
		})

		Convey("Then every payload sanitizes into a usable analysis", func() {
			for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
				resp, err := a.Analyze(context.Background(), video(id))
				So(err, ShouldBeNil)
				got := sanitize.Analysis(resp)
				So(got.Sections, ShouldHaveLength, 2)
				So(got.Sections[1].EndTime, ShouldEqual, 20)
				So(got.DetectedElements, ShouldHaveLength, 3)
				So(got.EngagementInsights, ShouldNotBeEmpty)
				So(got.SimilarityPatterns, ShouldNotBeBlank)
			}
		})
	})

	Convey("Given a slow simulated analyzer", t, func() {
		a := analyzer.NewSimulated(analyzer.WithLatencyRange(time.Second, 2*time.Second))

		Convey("Then cancellation interrupts the wait", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := a.Analyze(ctx, video("v1"))
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestThrottled(t *testing.T) {
	Convey("Given a throttled analyzer", t, func() {
		var calls atomic.Int32
		next := analyzer.Func(func(ctx context.Context, v model.RawVideo) (analyzer.Response, error) {
			calls.Add(1)
			if v.ID == "slow" {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			if v.ID == "broken" {
				return nil, errors.New("upstream 500")
			}
			return analyzer.Response{"category": "dance"}, nil
		})
		a := analyzer.NewThrottled(next,
			analyzer.WithRate(1000, 10),
			analyzer.WithTimeout(20*time.Millisecond),
			analyzer.WithLogger(logger.Nop()))

		Convey("A successful call passes the payload through", func() {
			resp, err := a.Analyze(context.Background(), video("v1"))
			So(err, ShouldBeNil)
			So(resp["category"], ShouldEqual, "dance")
		})

		Convey("A call exceeding the timeout is transient", func() {
			_, err := a.Analyze(context.Background(), video("slow"))
			So(errors.Is(err, etlerr.ErrTransientIO), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})

		Convey("An upstream failure is transient", func() {
			_, err := a.Analyze(context.Background(), video("broken"))
			So(errors.Is(err, etlerr.ErrTransientIO), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 1)
		})

		Convey("A cancelled context fails before calling upstream", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := a.Analyze(ctx, video("v1"))
			So(errors.Is(err, etlerr.ErrTransientIO), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 0)
		})
	})

	Convey("Given a limiter of one call per second", t, func() {
		next := analyzer.Func(func(context.Context, model.RawVideo) (analyzer.Response, error) {
			return analyzer.Response{}, nil
		})
		a := analyzer.NewThrottled(next, analyzer.WithRate(1, 1), analyzer.WithLogger(logger.Nop()))

		Convey("Then a second call inside the window waits past a short deadline", func() {
			_, err := a.Analyze(context.Background(), video("v1"))
			So(err, ShouldBeNil)

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, err = a.Analyze(ctx, video("v2"))
			So(errors.Is(err, etlerr.ErrTransientIO), ShouldBeTrue)
		})
	})
}
