package batch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/trendetl/internal/domain/batch"
	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/internal/domain/priority"
	"github.com/okian/trendetl/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// videoHandler treats each video's music id as the entity id.
type videoHandler struct {
	mu        sync.Mutex
	stored    []string
	failStore map[string]bool
	invalid   map[string]bool
	panicOn   string
}

func (h *videoHandler) SourceID(it priority.Item) string { return it.ID() }
func (h *videoHandler) Priority(it priority.Item) model.Priority { return it.Priority }

func (h *videoHandler) Extract(_ context.Context, it priority.Item) (string, string, error) {
	if it.ID() == h.panicOn {
		panic("corrupt record")
	}
	if it.Video.Music == nil {
		return "", "", nil
	}
	if it.Video.Music.ID == "unreadable" {
		return "", "", etlerr.Extraction("extract", "music block unreadable")
	}
	if it.Video.Music.ID == "flaky" {
		return "", "", etlerr.Transient("extract", errors.New("timeout"))
	}
	return it.Video.Music.Title, it.Video.Music.ID, nil
}

func (h *videoHandler) Validate(title string) error {
	if h.invalid[title] {
		return etlerr.Validation("validate.sound", "title is corrupt")
	}
	return nil
}

func (h *videoHandler) Store(_ context.Context, it priority.Item, _ string) (string, error) {
	if h.failStore[it.ID()] {
		return "", errors.New("store unavailable")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stored = append(h.stored, it.ID())
	return it.Video.Music.ID, nil
}

func newVideo(id, musicID string, plays, likes, usage float64) *model.RawVideo {
	v := &model.RawVideo{
		ID:    id,
		Stats: model.VideoStats{PlayCount: model.Float(plays), DiggCount: model.Float(likes)},
	}
	if musicID != "" {
		v.Music = &model.MusicMeta{ID: musicID, Title: "track " + musicID, UsageCount: model.Float(usage)}
	}
	return v
}

// twelveVideos returns 3 trending, 4 high-engagement, 2 popular-sound and 3
// standard videos, deliberately shuffled.
func twelveVideos() ([]*model.RawVideo, map[string]struct{}) {
	videos := []*model.RawVideo{
		newVideo("low-1", "m-l1", 10, 1, 10),
		newVideo("trend-1", "m-t1", 10, 1, 10),
		newVideo("med-1", "m-m1", 10, 1, 90_000),
		newVideo("eng-1", "m-e1", 900_000, 1, 10),
		newVideo("trend-2", "m-t2", 10, 1, 10),
		newVideo("low-2", "m-l2", 10, 1, 10),
		newVideo("eng-2", "m-e2", 10, 200_000, 10),
		newVideo("med-2", "m-m2", 10, 1, 60_000),
		newVideo("eng-3", "m-e3", 700_000, 1, 10),
		newVideo("trend-3", "m-t3", 10, 1, 10),
		newVideo("low-3", "m-l3", 10, 1, 10),
		newVideo("eng-4", "m-e4", 10, 150_000, 10),
	}
	return videos, priority.IDSet([]string{"trend-1", "trend-2", "trend-3"})
}

type delayCounter struct {
	mu    sync.Mutex
	calls int
}

func (d *delayCounter) wait(_ context.Context, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return nil
}

func TestRunTwelveVideos(t *testing.T) {
	Convey("Given 12 prioritized videos and a batch size of 5", t, func() {
		videos, trending := twelveVideos()
		items := priority.Prioritize(videos, trending)
		delays := &delayCounter{}
		h := &videoHandler{}

		s := batch.New[priority.Item, string](
			batch.WithBatchSize(5),
			batch.WithDelayFunc(delays.wait),
			batch.WithLogger(logger.Nop()),
		)

		sum, err := s.Run(context.Background(), items, h)

		Convey("Then it runs three batches with two delays", func() {
			So(err, ShouldBeNil)
			So(sum.Batches, ShouldEqual, 3)
			So(delays.calls, ShouldEqual, 2)
		})

		Convey("Then every item is accounted for", func() {
			So(sum.Total(), ShouldEqual, 12)
			So(sum.Stored, ShouldEqual, 12)
			So(sum.Extracted, ShouldEqual, 12)
			So(sum.ByPriority[model.PriorityHigh], ShouldEqual, 7)
			So(sum.ByPriority[model.PriorityMedium], ShouldEqual, 2)
			So(sum.ByPriority[model.PriorityLow], ShouldEqual, 3)
		})

		Convey("Then output follows priority order", func() {
			So(sum.OutputIDs[:7], ShouldResemble,
				[]string{"m-t1", "m-e1", "m-t2", "m-e2", "m-e3", "m-t3", "m-e4"})
			So(sum.OutputIDs[7:9], ShouldResemble, []string{"m-m1", "m-m2"})
			So(sum.OutputIDs[9:], ShouldResemble, []string{"m-l1", "m-l2", "m-l3"})
		})

		Convey("Then the job result mirrors the summary", func() {
			r := sum.Result()
			So(r.Processed, ShouldEqual, 12)
			So(r.Total(), ShouldEqual, 12)
		})
	})
}

func TestRunIsolation(t *testing.T) {
	Convey("Given a batch with every kind of bad item", t, func() {
		items := []priority.Item{
			{Video: newVideo("ok-1", "m1", 1, 1, 1), Priority: model.PriorityHigh},
			{Video: newVideo("no-music", "", 1, 1, 1), Priority: model.PriorityLow},
			{Video: newVideo("dup", "m1", 1, 1, 1), Priority: model.PriorityLow},
			{Video: newVideo("unreadable", "unreadable", 1, 1, 1), Priority: model.PriorityLow},
			{Video: newVideo("flaky", "flaky", 1, 1, 1), Priority: model.PriorityLow},
			{Video: newVideo("corrupt", "m2", 1, 1, 1), Priority: model.PriorityLow},
			{Video: newVideo("store-down", "m3", 1, 1, 1), Priority: model.PriorityLow},
			{Video: newVideo("boom", "m4", 1, 1, 1), Priority: model.PriorityLow},
			{Video: newVideo("ok-2", "m5", 1, 1, 1), Priority: model.PriorityLow},
		}
		h := &videoHandler{
			invalid:   map[string]bool{"track m2": true},
			failStore: map[string]bool{"store-down": true},
			panicOn:   "boom",
		}
		s := batch.New[priority.Item, string](
			batch.WithBatchSize(3),
			batch.WithInterBatchDelay(0),
			batch.WithLogger(logger.Nop()),
		)

		sum, err := s.Run(context.Background(), items, h)

		Convey("Then no item aborts the run", func() {
			So(err, ShouldBeNil)
			So(sum.Total(), ShouldEqual, len(items))
		})

		Convey("Then missing, duplicate and unreadable entities are skipped", func() {
			So(sum.Skipped, ShouldEqual, 3)
		})

		Convey("Then transient, invalid, store and panic errors fail", func() {
			So(sum.Failed, ShouldEqual, 4)
			So(sum.Stored, ShouldEqual, 2)
			So(sum.OutputIDs, ShouldResemble, []string{"m1", "m5"})
			So(sum.Reasons, ShouldHaveLength, 7)
		})
	})
}

func TestRunCancellation(t *testing.T) {
	Convey("Given a run cancelled during the first pause", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		items := make([]priority.Item, 12)
		for i := range items {
			items[i] = priority.Item{Video: newVideo(fmt.Sprintf("v%d", i), fmt.Sprintf("m%d", i), 1, 1, 1), Priority: model.PriorityLow}
		}

		s := batch.New[priority.Item, string](
			batch.WithBatchSize(5),
			batch.WithDelayFunc(func(ctx context.Context, _ time.Duration) error {
				cancel()
				return ctx.Err()
			}),
			batch.WithLogger(logger.Nop()),
		)

		sum, err := s.Run(ctx, items, &videoHandler{})

		Convey("Then the partial summary comes back with a fatal error", func() {
			So(etlerr.IsFatal(err), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(sum.Batches, ShouldEqual, 1)
			So(sum.Total(), ShouldEqual, 5)
		})
	})

	Convey("Given an already cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := batch.New[priority.Item, string](batch.WithLogger(logger.Nop()))
		sum, err := s.Run(ctx, []priority.Item{{Video: newVideo("v", "m", 1, 1, 1)}}, &videoHandler{})

		So(etlerr.IsFatal(err), ShouldBeTrue)
		So(sum.Total(), ShouldEqual, 0)
	})
}

func TestSleep(t *testing.T) {
	Convey("Sleep returns early when the context is done", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		So(errors.Is(batch.Sleep(ctx, time.Hour), context.Canceled), ShouldBeTrue)
		So(batch.Sleep(context.Background(), 0), ShouldBeNil)
	})
}
