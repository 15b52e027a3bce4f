package period_test

import (
	"testing"
	"time"

	"github.com/okian/driftwatch/internal/domain/period"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLabel(t *testing.T) {
	Convey("Given period ends", t, func() {
		Convey("Then weekly periods use the ISO week of the end", func() {
			So(period.Label(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), 7), ShouldEqual, "2026-W42")
			So(period.Label(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), 7), ShouldEqual, "2026-W53")
		})

		Convey("Then longer periods use the month", func() {
			So(period.Label(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), 30), ShouldEqual, "2026-10")
		})
	})
}

func TestPrevious(t *testing.T) {
	Convey("Given the current week", t, func() {
		cur := period.Current(time.Date(2026, 10, 17, 18, 0, 0, 0, time.UTC), 7)

		Convey("Then it spans seven days ending today", func() {
			So(cur.End, ShouldEqual, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC))
			So(cur.Start, ShouldEqual, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC))
		})

		Convey("Then the previous period is one week earlier", func() {
			prev := period.Previous(cur, 7)
			So(prev.Label, ShouldEqual, "2026-W41")
			So(prev.End, ShouldEqual, time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC))
		})
	})
}

func TestPrevious_Monthly(t *testing.T) {
	Convey("Given a thirty day period ending on the last day of March", t, func() {
		cur := period.Current(time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC), 30)
		So(cur.Label, ShouldEqual, "2026-03")

		Convey("Then the previous period is February, not March again", func() {
			prev := period.Previous(cur, 30)
			So(prev.Label, ShouldEqual, "2026-02")
			So(prev.End, ShouldEqual, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
		})
	})

	Convey("Given a fifteen day period ending mid month", t, func() {
		cur := period.Current(time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), 15)

		Convey("Then the previous period ends on the last day of the prior month", func() {
			prev := period.Previous(cur, 15)
			So(prev.Label, ShouldEqual, "2026-09")
			So(prev.End, ShouldEqual, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC))
		})
	})

	Convey("Given a three day period", t, func() {
		cur := period.Current(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), 3)

		Convey("Then the previous period is in the previous ISO week", func() {
			So(period.Previous(cur, 3).Label, ShouldEqual, "2026-W41")
		})
	})
}
