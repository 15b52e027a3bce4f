package confidence_test

import (
	"testing"

	"github.com/okian/driftwatch/internal/domain/confidence"
	"github.com/okian/driftwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLabel(t *testing.T) {
	Convey("Given completeness ratios around the thresholds", t, func() {
		So(confidence.Label(1), ShouldEqual, model.ConfidenceHigh)
		So(confidence.Label(0.66), ShouldEqual, model.ConfidenceHigh)
		So(confidence.Label(0.65), ShouldEqual, model.ConfidenceMedium)
		So(confidence.Label(0.33), ShouldEqual, model.ConfidenceMedium)
		So(confidence.Label(0.32), ShouldEqual, model.ConfidenceLow)
		So(confidence.Label(0), ShouldEqual, model.ConfidenceLow)
	})

	Convey("Given a zero total", t, func() {
		So(confidence.Completeness(3, 0), ShouldEqual, 0)
	})
}

func TestForComposite(t *testing.T) {
	Convey("Given window averages with some key inputs", t, func() {
		avg := &model.MetricSnapshot{}

		Convey("When none are present", func() {
			label, n := confidence.ForComposite(avg)
			So(label, ShouldEqual, model.ConfidenceLow)
			So(n, ShouldEqual, 0)
		})

		Convey("When two of five are present", func() {
			avg.MeetingLoadIndex = model.Float(10)
			avg.SentimentScore = model.Float(0.2)
			label, n := confidence.ForComposite(avg)
			So(label, ShouldEqual, model.ConfidenceMedium)
			So(n, ShouldEqual, 2)
		})

		Convey("When four of five are present", func() {
			avg.MeetingLoadIndex = model.Float(10)
			avg.SentimentScore = model.Float(0.2)
			avg.FocusTimeRatio = model.Float(0.6)
			avg.AfterHoursRate = model.Float(0.1)
			label, n := confidence.ForComposite(avg)
			So(label, ShouldEqual, model.ConfidenceHigh)
			So(n, ShouldEqual, 4)
		})
	})
}

func TestForDecisionClosure(t *testing.T) {
	Convey("Given collaboration totals", t, func() {
		totals := &model.MetricSnapshot{
			MeetingCount: model.Float(4),
			MessageCount: model.Float(0),
		}

		Convey("Then zero totals do not count", func() {
			So(confidence.ForDecisionClosure(totals), ShouldEqual, model.ConfidenceMedium)
		})

		Convey("Then all three categories give High", func() {
			totals.MessageCount = model.Float(12)
			totals.ThreadCount = model.Float(3)
			So(confidence.ForDecisionClosure(totals), ShouldEqual, model.ConfidenceHigh)
		})
	})
}
