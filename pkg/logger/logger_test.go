package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging at info with fields", func() {
			Get().Info(ctx, "batch finished",
				String("pipeline", "sounds"),
				Int("stored", 4),
				Duration("took", 2*time.Second),
				Bool("cancelled", false),
			)

			Convey("Then the record carries message, fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "batch finished")
				So(out, ShouldContainSubstring, "pipeline=sounds")
				So(out, ShouldContainSubstring, "stored=4")
				So(out, ShouldContainSubstring, "source=")
			})
		})

		Convey("When a named logger is used", func() {
			Named("scheduler").Warn(ctx, "slow chunk", Error(errors.New("boom")))

			Convey("Then the component is attached", func() {
				So(buf.String(), ShouldContainSubstring, "component=scheduler")
				So(buf.String(), ShouldContainSubstring, "boom")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Debug(ctx, "hidden too")

			Convey("Then lower records are dropped", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
			})
			SetLevel(slog.LevelInfo)
		})

		Convey("When an unknown level is given", func() {
			err := SetLevelString("loud")

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Nop swallows every level", t, func() {
		l := Nop()
		So(func() { l.Error(context.Background(), "ignored") }, ShouldNotPanic)
		So(l.Named("x"), ShouldNotBeNil)
	})
}
