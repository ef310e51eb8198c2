package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/trendetl/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDeduper(t *testing.T) {
	Convey("Given a new deduper", t, func() {
		ctx := context.Background()
		d := dedupe.New()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When an id is recorded twice", func() {
			first := d.SeenAndRecord(ctx, "video-1")
			second := d.SeenAndRecord(ctx, "video-1")

			Convey("Then only the second call reports it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an id is unrecorded", func() {
			d.SeenAndRecord(ctx, "video-1")
			d.Unrecord(ctx, "video-1")
			d.Unrecord(ctx, "never-seen")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "video-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.New(dedupe.WithMaxSize(2), dedupe.WithShards(1))

		for i := range 3 {
			d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i))
		}

		Convey("Then ids past the cap are not recorded", func() {
			So(d.Size(), ShouldEqual, 2)
			So(d.SeenAndRecord(ctx, "id-0"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "id-2"), ShouldBeFalse)
		})
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines racing on the same ids", t, func() {
		ctx := context.Background()
		d := dedupe.New()
		var fresh atomic.Int64
		var wg sync.WaitGroup

		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i)) {
						fresh.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each id is reported fresh exactly once", func() {
			So(fresh.Load(), ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
