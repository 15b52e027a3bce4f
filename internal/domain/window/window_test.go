package window_test

import (
	"testing"
	"time"

	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/internal/domain/window"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBounds(t *testing.T) {
	Convey("Given a seven day window", t, func() {
		asOf := time.Date(2026, 10, 17, 15, 30, 0, 0, time.UTC)
		from, to := window.Bounds(asOf, 7)

		Convey("Then it covers seven calendar days ending today", func() {
			So(to, ShouldEqual, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC))
			So(from, ShouldEqual, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC))
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given rows with a missing value", t, func() {
		rows := []model.MetricSnapshot{
			{MeetingLoadIndex: model.Float(10)},
			{MeetingLoadIndex: nil},
			{MeetingLoadIndex: model.Float(14)},
		}

		Convey("Then mean and population std skip the missing value", func() {
			mean, std, n := window.Stats(rows, model.SignalMeetingLoad)
			So(n, ShouldEqual, 2)
			So(mean, ShouldEqual, 12)
			So(std, ShouldAlmostEqual, 2, 1e-9)
		})

		Convey("Then absent signals report zero values", func() {
			_, _, n := window.Stats(rows, model.SignalSentiment)
			So(n, ShouldEqual, 0)
		})
	})
}

func TestAverages(t *testing.T) {
	Convey("Given a window of rows", t, func() {
		rows := []model.MetricSnapshot{
			{TeamID: "t", AfterHoursRate: model.Float(0.1), MessageCount: model.Float(5)},
			{TeamID: "t", AfterHoursRate: model.Float(0.3), MessageCount: model.Float(7)},
		}

		Convey("Then averages and totals are computed per signal", func() {
			avg := window.Averages(rows)
			So(*avg.AfterHoursRate, ShouldAlmostEqual, 0.2, 1e-9)
			So(avg.SentimentScore, ShouldBeNil)
			So(avg.TeamID, ShouldEqual, "t")

			tot := window.Totals(rows)
			So(*tot.MessageCount, ShouldEqual, 12)
		})

		Convey("Then the signal map round-trips", func() {
			avg := window.Averages(rows)
			m := window.SignalMap(&avg)
			So(m, ShouldContainKey, model.SignalAfterHours)
			So(m, ShouldNotContainKey, model.SignalSentiment)
			back := window.FromSignalMap(m)
			So(*back.MessageCount, ShouldEqual, 6)
		})
	})
}
