// Package storetest holds the behaviour every repository.Store must share, so
// the in-memory and sqlite stores are tested against the same expectations.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var day0 = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func dayN(n int) time.Time { return day0.AddDate(0, 0, n) }

// Run exercises a store built by factory. Each Convey leaf gets a fresh store.
func Run(t *testing.T, factory func(t *testing.T) repository.Store) { //nolint:funlen // one suite
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := factory(t)
		Reset(func() { _ = s.Close() })

		Convey("Teams are registered and listed by id", func() {
			So(s.PutTeam(ctx, model.Team{ID: "t2", OrgID: "o1", Name: "Two"}), ShouldBeNil)
			So(s.PutTeam(ctx, model.Team{ID: "t1", OrgID: "o1", Name: "One"}), ShouldBeNil)
			So(s.PutTeam(ctx, model.Team{ID: "t3", OrgID: "o2"}), ShouldBeNil)

			teams, err := s.ListTeams(ctx)
			So(err, ShouldBeNil)
			So(teams, ShouldHaveLength, 3)
			So(teams[0].ID, ShouldEqual, "t1")

			inOrg, err := s.TeamsInOrg(ctx, "o1")
			So(err, ShouldBeNil)
			So(inOrg, ShouldHaveLength, 2)

			none, err := s.TeamsInOrg(ctx, "missing")
			So(err, ShouldBeNil)
			So(none, ShouldBeEmpty)

			got, err := s.GetTeam(ctx, "t1")
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "One")

			_, err = s.GetTeam(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Metric rows are read back by window with nulls preserved", func() {
			So(s.PutTeam(ctx, model.Team{ID: "t1", OrgID: "o1"}), ShouldBeNil)
			rows := []model.MetricSnapshot{
				{TeamID: "t1", OrgID: "o1", Day: dayN(0), MeetingLoadIndex: model.Float(10)},
				{TeamID: "t1", OrgID: "o1", Day: dayN(1), MeetingLoadIndex: model.Float(12), SentimentScore: model.Float(0.2)},
				{TeamID: "t1", OrgID: "o1", Day: dayN(5), MeetingLoadIndex: model.Float(20)},
			}
			So(s.InsertMetrics(ctx, rows), ShouldBeNil)

			got, err := s.Metrics(ctx, []string{"t1"}, dayN(0), dayN(2))
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].Day.Equal(dayN(0)), ShouldBeTrue)
			So(*got[1].MeetingLoadIndex, ShouldEqual, 12)
			So(*got[1].SentimentScore, ShouldEqual, 0.2)
			So(got[0].SentimentScore, ShouldBeNil)

			err = s.InsertMetrics(ctx, []model.MetricSnapshot{{TeamID: "t1", Day: dayN(0)}})
			So(errors.Is(err, repository.ErrDuplicate), ShouldBeTrue)
		})

		Convey("Baselines are replaced, never appended", func() {
			_, err := s.GetBaseline(ctx, "t1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			b := model.Baseline{TeamID: "t1", Value: 60, Signals: map[string]float64{"afterHoursRate": 0.1}, CapturedAt: dayN(0)}
			So(s.PutBaseline(ctx, b), ShouldBeNil)
			b.Value = 70
			b.Signals = map[string]float64{"meetingLoadIndex": 10}
			So(s.PutBaseline(ctx, b), ShouldBeNil)

			got, err := s.GetBaseline(ctx, "t1")
			So(err, ShouldBeNil)
			So(got.Value, ShouldEqual, 70)
			So(got.Signals, ShouldResemble, map[string]float64{"meetingLoadIndex": 10})
			So(got.CapturedAt.Equal(dayN(0)), ShouldBeTrue)

			teams, err := s.BaselineTeams(ctx)
			So(err, ShouldBeNil)
			So(teams, ShouldResemble, []string{"t1"})
		})

		Convey("Drift events are unique per team, metric and day", func() {
			e := model.DriftEvent{
				ID: "e1", TeamID: "t1", OrgID: "o1", Metric: "afterHours",
				Direction: model.DirectionPositive, Magnitude: 30, Basis: model.BasisPercent,
				Details:        model.DriftDetails{WindowAverage: 0.13, BaselineValue: 0.1, PercentChange: 30, Threshold: 20, Polarity: "percent", SampleCount: 7},
				Drivers:        []model.Driver{{Metric: "afterHours", PercentChange: 30}},
				Recommendation: "Protect evenings.",
				Day:            dayN(3),
			}
			So(s.CreateDriftEvent(ctx, e), ShouldBeNil)

			exists, err := s.DriftEventExists(ctx, e.Key())
			So(err, ShouldBeNil)
			So(exists, ShouldBeTrue)

			dup := e
			dup.ID = "e1-again"
			So(errors.Is(s.CreateDriftEvent(ctx, dup), repository.ErrDuplicate), ShouldBeTrue)

			later := e
			later.ID, later.Metric, later.Day = "e2", "meetingLoad", dayN(4)
			So(s.CreateDriftEvent(ctx, later), ShouldBeNil)
			other := e
			other.ID, other.TeamID = "e3", "t2"
			So(s.CreateDriftEvent(ctx, other), ShouldBeNil)

			list, err := s.ListDriftEvents(ctx, "t1")
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)
			So(list[0].ID, ShouldEqual, "e2")
			So(list[1].Drivers, ShouldResemble, e.Drivers)
			So(list[1].Details, ShouldResemble, e.Details)

			all, err := s.ListDriftEvents(ctx, "")
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 3)

			latest, err := s.LatestDriftEvent(ctx, []string{"t1", "t2"})
			So(err, ShouldBeNil)
			So(latest.ID, ShouldEqual, "e2")

			_, err = s.LatestDriftEvent(ctx, []string{"nobody"})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			acked, err := s.AcknowledgeDriftEvent(ctx, "e1")
			So(err, ShouldBeNil)
			So(acked.Acknowledged, ShouldBeTrue)
			list, _ = s.ListDriftEvents(ctx, "t1")
			So(list[1].Acknowledged, ShouldBeTrue)

			_, err = s.AcknowledgeDriftEvent(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Composites are upserted by scope and period", func() {
			prev := 60
			c := model.CompositeScore{
				ScopeID: "t1", PeriodLabel: "2026-W40", PeriodStart: dayN(-3), PeriodEnd: dayN(3),
				Score: 68, Zone: model.ZoneStable, Trend: model.TrendUp, TrendPct: 13, PreviousScore: &prev,
				Pillars: map[string]model.PillarScore{
					model.PillarExecution: {Score: 64, Components: map[string]*float64{"meetingLoadIndex": model.Float(75), "flowEfficiency": nil}, Trend: model.TrendStable},
				},
				Weights:     map[string]float64{model.PillarExecution: 0.3},
				Energy:      model.EnergyReport{Score: 61, Zone: model.ZoneStable, TopContributors: []model.Indicator{{Name: "resilience", Score: 80}}, RecommendedAction: "x"},
				DataQuality: model.ConfidenceHigh, DCRConfidence: model.ConfidenceLow, MetricsAvailable: 5,
			}
			So(s.UpsertComposite(ctx, c), ShouldBeNil)
			c.Score = 70
			So(s.UpsertComposite(ctx, c), ShouldBeNil)

			got, err := s.GetComposite(ctx, "t1", "2026-W40")
			So(err, ShouldBeNil)
			So(got.Score, ShouldEqual, 70)
			So(*got.PreviousScore, ShouldEqual, 60)
			So(got.Pillars[model.PillarExecution].Components["flowEfficiency"], ShouldBeNil)
			So(*got.Pillars[model.PillarExecution].Components["meetingLoadIndex"], ShouldEqual, 75)
			So(got.Energy.TopContributors, ShouldResemble, c.Energy.TopContributors)

			next := c
			next.PeriodLabel, next.PeriodStart, next.PeriodEnd = "2026-W41", dayN(4), dayN(10)
			So(s.UpsertComposite(ctx, next), ShouldBeNil)

			list, err := s.ListComposites(ctx, "t1", 10)
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)
			So(list[0].PeriodLabel, ShouldEqual, "2026-W41")

			one, err := s.ListComposites(ctx, "t1", 1)
			So(err, ShouldBeNil)
			So(one, ShouldHaveLength, 1)

			_, err = s.GetComposite(ctx, "t1", "1999-W01")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("History is replaced wholesale and keeps order", func() {
			h := []model.HistorySnapshot{
				{TeamID: "t1", Score: 70, Signals: map[string]float64{"afterHoursRate": 0.1}, CapturedAt: dayN(2)},
				{TeamID: "t1", Score: 65, CapturedAt: dayN(1)},
			}
			So(s.ReplaceHistory(ctx, "t1", h), ShouldBeNil)

			got, err := s.History(ctx, "t1")
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].Score, ShouldEqual, 70)
			So(got[0].Signals["afterHoursRate"], ShouldEqual, 0.1)

			So(s.ReplaceHistory(ctx, "t1", h[1:]), ShouldBeNil)
			got, _ = s.History(ctx, "t1")
			So(got, ShouldHaveLength, 1)

			empty, err := s.History(ctx, "t9")
			So(err, ShouldBeNil)
			So(empty, ShouldBeEmpty)
		})
	})
}
