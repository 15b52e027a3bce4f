package baseline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/baseline"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

type fixedScore float64

func (f fixedScore) CurrentScore(context.Context, string, time.Time) (float64, error) {
	return float64(f), nil
}

func newManager(store *repository.MemStore, score float64) *baseline.Manager {
	return baseline.NewManager(store, fixedScore(score),
		baseline.WithClock(func() time.Time { return now }),
		baseline.WithLogger(logger.Nop()),
	)
}

func TestSet(t *testing.T) {
	ctx := context.Background()

	Convey("Given a team with a week of meeting load rows", t, func() {
		store := repository.NewMemStore()
		var rows []model.MetricSnapshot
		for i := 0; i < 7; i++ {
			rows = append(rows, model.MetricSnapshot{
				TeamID:           "t1",
				Day:              model.Day(now).AddDate(0, 0, -i),
				MeetingLoadIndex: model.Float(float64(10 + i%2*2)),
			})
		}
		So(store.InsertMetrics(ctx, rows), ShouldBeNil)
		m := newManager(store, 64)

		Convey("When the baseline is set without a value", func() {
			b, err := m.Set(ctx, "t1", nil, nil)
			So(err, ShouldBeNil)

			Convey("Then the current score and window averages are captured", func() {
				So(b.Value, ShouldEqual, 64)
				So(b.CapturedAt, ShouldEqual, now)
				So(b.Signals, ShouldContainKey, model.SignalMeetingLoad)
				So(b.Signals, ShouldNotContainKey, model.SignalSentiment)

				stored, err := store.GetBaseline(ctx, "t1")
				So(err, ShouldBeNil)
				So(stored.Value, ShouldEqual, 64)
			})
		})

		Convey("When the baseline is set with an explicit value and date", func() {
			v := 70.0
			at := now.AddDate(0, 0, -3)
			b, err := m.Set(ctx, "t1", &v, &at)
			So(err, ShouldBeNil)

			Convey("Then both are kept and later calls replace it", func() {
				So(b.Value, ShouldEqual, 70)
				So(b.CapturedAt, ShouldEqual, at)

				v2 := 50.0
				_, err := m.Set(ctx, "t1", &v2, nil)
				So(err, ShouldBeNil)
				stored, _ := store.GetBaseline(ctx, "t1")
				So(stored.Value, ShouldEqual, 50)
			})
		})
	})
}

func TestCompare(t *testing.T) {
	ctx := context.Background()

	Convey("Given a team calibrated ten days ago at 50", t, func() {
		store := repository.NewMemStore()
		So(store.PutBaseline(ctx, model.Baseline{TeamID: "t1", Value: 50, CapturedAt: now.AddDate(0, 0, -10)}), ShouldBeNil)
		m := newManager(store, 60)

		Convey("Then the comparison reports the change", func() {
			c, err := m.Compare(ctx, "t1")
			So(err, ShouldBeNil)
			So(c, ShouldNotBeNil)
			So(c.BaselineValue, ShouldEqual, 50)
			So(c.CurrentValue, ShouldEqual, 60)
			So(c.Change, ShouldEqual, 10)
			So(c.PercentChange, ShouldEqual, 20)
			So(c.DaysSinceBaseline, ShouldEqual, 10)
		})
	})

	Convey("Given a team never calibrated", t, func() {
		m := newManager(repository.NewMemStore(), 60)

		Convey("Then Compare returns nothing without error", func() {
			c, err := m.Compare(ctx, "t1")
			So(err, ShouldBeNil)
			So(c, ShouldBeNil)
		})

		Convey("Then Require reports not calibrated", func() {
			_, err := m.Require(ctx, "t1")
			So(errors.Is(err, baseline.ErrNotCalibrated), ShouldBeTrue)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
