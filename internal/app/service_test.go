package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	service "github.com/okian/driftwatch/internal/app"
	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/baseline"
	"github.com/okian/driftwatch/internal/domain/drift"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func newService(store repository.Store, opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithClock(func() time.Time { return now }),
		service.WithWorkerCount(2),
		service.WithLogger(logger.Nop()),
	}, opts...)
	return service.New(store, opts...)
}

// seedTeams registers t1 and t2 in org o1 with two weeks of complete rows.
func seedTeams(store *repository.MemStore, afterHours float64) {
	ctx := context.Background()
	for _, id := range []string{"t1", "t2"} {
		So(store.PutTeam(ctx, model.Team{ID: id, OrgID: "o1"}), ShouldBeNil)
		var rows []model.MetricSnapshot
		for i := 13; i >= 0; i-- {
			rows = append(rows, model.MetricSnapshot{
				TeamID:              id,
				OrgID:               "o1",
				Day:                 model.Day(now).AddDate(0, 0, -i),
				MeetingLoadIndex:    model.Float(10),
				AfterHoursRate:      model.Float(afterHours),
				ResponseLatency:     model.Float(4),
				SentimentScore:      model.Float(0.4),
				FocusTimeRatio:      model.Float(0.6),
				RecoveryDays:        model.Float(3),
				NetworkBreadth:      model.Float(12),
				InterruptionRate:    model.Float(2),
				FlowEfficiency:      model.Float(0.5),
				DecisionLatency:     model.Float(24),
				ExperimentRate:      model.Float(0.2),
				CrossTeamRatio:      model.Float(0.3),
				DecisionClosureRate: model.Float(0.6),
				MeetingCount:        model.Float(8),
				MessageCount:        model.Float(120),
				ThreadCount:         model.Float(30),
			})
		}
		So(store.InsertMetrics(ctx, rows), ShouldBeNil)
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService(repository.NewMemStore())
		ctx := context.Background()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldEqual, false)
			So(stats["teams"], ShouldEqual, 0)
		})

		Convey("When the service is started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats(ctx)["started"], ShouldEqual, true)

			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestService_Baseline(t *testing.T) {
	ctx := context.Background()

	Convey("Given a team that was never calibrated", t, func() {
		store := repository.NewMemStore()
		seedTeams(store, 0.1)
		svc := newService(store)

		Convey("Then comparison is empty and requiring one fails", func() {
			c, err := svc.CompareToBaseline(ctx, "t1")
			So(err, ShouldBeNil)
			So(c, ShouldBeNil)

			_, err = svc.RequireBaseline(ctx, "t1")
			So(errors.Is(err, baseline.ErrNotCalibrated), ShouldBeTrue)
		})

		Convey("When the baseline is set from the current score", func() {
			b, err := svc.SetBaseline(ctx, "t1", nil, nil)
			So(err, ShouldBeNil)

			Convey("Then an immediate comparison shows no change", func() {
				So(b.Value, ShouldBeBetweenOrEqual, 0, 100)
				So(b.Signals[model.SignalAfterHours], ShouldAlmostEqual, 0.1, 1e-9)

				c, err := svc.CompareToBaseline(ctx, "t1")
				So(err, ShouldBeNil)
				So(c.Change, ShouldEqual, 0)
				So(c.DaysSinceBaseline, ShouldEqual, 0)
			})
		})

		Convey("When the team is unknown", func() {
			_, err := svc.SetBaseline(ctx, "nope", nil, nil)
			So(errors.Is(err, service.ErrScopeNotFound), ShouldBeTrue)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_DetectDrift(t *testing.T) {
	ctx := context.Background()

	Convey("Given a calibrated team whose after-hours rate rose by 30 percent", t, func() {
		store := repository.NewMemStore()
		seedTeams(store, 0.13)
		So(store.PutBaseline(ctx, model.Baseline{
			TeamID:     "t1",
			Value:      60,
			Signals:    map[string]float64{model.SignalAfterHours: 0.10},
			CapturedAt: now.AddDate(0, 0, -30),
		}), ShouldBeNil)
		svc := newService(store)

		Convey("When all teams are swept", func() {
			report, err := svc.DetectDriftForAllTeams(ctx, service.DetectOptions{})
			So(err, ShouldBeNil)

			Convey("Then only the calibrated team is processed and one event exists", func() {
				So(report.Cycle, ShouldEqual, "2026-10-17")
				So(report.Processed, ShouldResemble, []string{"t1"})
				So(report.Failed, ShouldBeEmpty)

				events, err := svc.ListDriftEvents(ctx, "t1")
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 1)
				So(events[0].Metric, ShouldEqual, "afterHours")
				So(events[0].Direction, ShouldEqual, model.DirectionPositive)
				So(events[0].Magnitude, ShouldAlmostEqual, 30, 0.01)
				So(events[0].Recommendation, ShouldNotBeEmpty)
			})

			Convey("Then the same cycle is skipped on rerun", func() {
				again, err := svc.DetectDriftForAllTeams(ctx, service.DetectOptions{})
				So(err, ShouldBeNil)
				So(again.Skipped, ShouldResemble, []string{"t1"})
				So(again.Processed, ShouldBeEmpty)
			})

			Convey("Then a new cycle on the same day adds no duplicate", func() {
				_, err := svc.DetectDriftForAllTeams(ctx, service.DetectOptions{Cycle: "manual"})
				So(err, ShouldBeNil)
				events, _ := svc.ListDriftEvents(ctx, "t1")
				So(events, ShouldHaveLength, 1)
			})

			Convey("Then the event can be acknowledged", func() {
				events, _ := svc.ListDriftEvents(ctx, "t1")
				e, err := svc.AcknowledgeDriftEvent(ctx, events[0].ID)
				So(err, ShouldBeNil)
				So(e.Acknowledged, ShouldBeTrue)
			})
		})

		Convey("When a higher threshold is passed", func() {
			res, err := svc.DetectDriftForTeam(ctx, "t1", service.DetectOptions{
				ThresholdOverrides: map[string]drift.Override{"afterHours": {Threshold: 40}},
			})
			So(err, ShouldBeNil)
			So(res.Created, ShouldBeEmpty)
		})
	})
}

func TestService_SweepResume(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store that fails reading one team's metrics once", t, func() {
		mem := repository.NewMemStore()
		seedTeams(mem, 0.2)
		for _, id := range []string{"t1", "t2"} {
			So(mem.PutBaseline(ctx, model.Baseline{TeamID: id, Signals: map[string]float64{model.SignalAfterHours: 0.1}}), ShouldBeNil)
		}
		store := &faultyStore{MemStore: mem, metricFailures: map[string]int{"t2": 1}}
		svc := newService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		first, err := svc.DetectDriftForAllTeams(ctx, service.DetectOptions{Cycle: "c1"})
		So(err, ShouldBeNil)

		Convey("Then the failure is attributed to the team and the rest completes", func() {
			So(first.Processed, ShouldResemble, []string{"t1"})
			So(first.Failed, ShouldContainKey, "t2")
		})

		Convey("When the cycle is rerun", func() {
			second, err := svc.DetectDriftForAllTeams(ctx, service.DetectOptions{Cycle: "c1"})
			So(err, ShouldBeNil)

			Convey("Then only the failed team is processed again", func() {
				So(second.Skipped, ShouldResemble, []string{"t1"})
				So(second.Processed, ShouldResemble, []string{"t2"})
				So(second.Failed, ShouldBeEmpty)
			})
		})
	})
}

func TestService_CompositeScore(t *testing.T) {
	ctx := context.Background()

	Convey("Given two teams in one organization", t, func() {
		store := repository.NewMemStore()
		seedTeams(store, 0.1)
		svc := newService(store)

		Convey("When a team is scored twice with identical inputs", func() {
			a, err := svc.CalculateCompositeScore(ctx, "t1", service.ScoreOptions{ForceRecalculate: true})
			So(err, ShouldBeNil)
			b, err := svc.CalculateCompositeScore(ctx, "t1", service.ScoreOptions{ForceRecalculate: true})
			So(err, ShouldBeNil)

			Convey("Then both results and the stored record are identical", func() {
				So(cmp.Diff(a, b), ShouldBeEmpty)
				stored, err := store.GetComposite(ctx, "t1", "2026-W42")
				So(err, ShouldBeNil)
				So(cmp.Diff(a, stored), ShouldBeEmpty)
			})

			Convey("Then every score is within range", func() {
				So(a.Score, ShouldBeBetweenOrEqual, 0, 100)
				for _, p := range a.Pillars {
					So(p.Score, ShouldBeBetweenOrEqual, 0, 100)
				}
				So(a.Energy.TopContributors, ShouldHaveLength, 3)
				So(a.Energy.RecommendedAction, ShouldNotBeEmpty)
				So(a.PeriodLabel, ShouldEqual, "2026-W42")
			})
		})

		Convey("When the organization is scored", func() {
			c, err := svc.CalculateCompositeScore(ctx, "o1", service.ScoreOptions{})
			So(err, ShouldBeNil)

			Convey("Then it matches a team with identical rows", func() {
				team, err := svc.CalculateCompositeScore(ctx, "t1", service.ScoreOptions{})
				So(err, ShouldBeNil)
				So(c.ScopeID, ShouldEqual, "o1")
				So(c.Score, ShouldEqual, team.Score)
			})
		})

		Convey("When the scope is unknown", func() {
			_, err := svc.CalculateCompositeScore(ctx, "ghost", service.ScoreOptions{})
			So(errors.Is(err, service.ErrScopeNotFound), ShouldBeTrue)
		})

		Convey("When the store fails transiently once on upsert", func() {
			flaky := &faultyStore{MemStore: store, upsertFailures: 1}
			c, err := newService(flaky).CalculateCompositeScore(ctx, "t2", service.ScoreOptions{})

			Convey("Then the write is retried and succeeds", func() {
				So(err, ShouldBeNil)
				So(c.ScopeID, ShouldEqual, "t2")
				So(flaky.upsertCalls, ShouldEqual, 2)
			})
		})
	})
}

func TestService_ScoreHistory(t *testing.T) {
	ctx := context.Background()

	Convey("Given three stored weekly composites", t, func() {
		store := repository.NewMemStore()
		for i, label := range []string{"2026-W40", "2026-W41", "2026-W42"} {
			So(store.UpsertComposite(ctx, model.CompositeScore{
				ScopeID:     "t1",
				PeriodLabel: label,
				PeriodEnd:   time.Date(2026, 10, 4+7*i, 0, 0, 0, 0, time.UTC),
				Score:       50 + i,
			}), ShouldBeNil)
		}
		svc := newService(store)

		Convey("Then the latest two are returned oldest first", func() {
			got, err := svc.GetScoreHistory(ctx, "o1", service.HistoryOptions{TeamID: "t1", Limit: 2})
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].PeriodLabel, ShouldEqual, "2026-W41")
			So(got[1].PeriodLabel, ShouldEqual, "2026-W42")
		})
	})
}

func TestService_ScoreAllTeams(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with two teams", t, func() {
		store := repository.NewMemStore()
		seedTeams(store, 0.1)
		svc := newService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		report, err := svc.ScoreAllTeams(ctx, service.SweepScoreOptions{})
		So(err, ShouldBeNil)

		Convey("Then teams and the organization are scored", func() {
			So(report.Processed, ShouldResemble, []string{"t1", "t2", "o1"})
			_, err := store.GetComposite(ctx, "o1", "2026-W42")
			So(err, ShouldBeNil)
		})

		Convey("Then each team has a history snapshot", func() {
			h, err := svc.GetHistoryRange(ctx, "t1", 7)
			So(err, ShouldBeNil)
			So(h, ShouldHaveLength, 1)
			So(h[0].CapturedAt, ShouldEqual, now)

			v, err := svc.Velocity(ctx, "t1")
			So(err, ShouldBeNil)
			So(v, ShouldBeNil)
		})
	})
}

func TestService_MonthlyComposite(t *testing.T) {
	ctx := context.Background()
	monthEnd := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	Convey("Given a team with thirty days of rows at a month end", t, func() {
		store := repository.NewMemStore()
		So(store.PutTeam(ctx, model.Team{ID: "t1", OrgID: "o1"}), ShouldBeNil)
		var rows []model.MetricSnapshot
		for i := 29; i >= 0; i-- {
			rows = append(rows, model.MetricSnapshot{
				TeamID:           "t1",
				OrgID:            "o1",
				Day:              model.Day(monthEnd).AddDate(0, 0, -i),
				MeetingLoadIndex: model.Float(10),
				AfterHoursRate:   model.Float(0.1),
				FocusTimeRatio:   model.Float(0.6),
				SentimentScore:   model.Float(0.4),
			})
		}
		So(store.InsertMetrics(ctx, rows), ShouldBeNil)
		svc := newService(store, service.WithClock(func() time.Time { return monthEnd }))
		opts := service.ScoreOptions{PeriodDays: 30, ForceRecalculate: true}

		Convey("When the monthly composite is forced twice", func() {
			first, err := svc.CalculateCompositeScore(ctx, "t1", opts)
			So(err, ShouldBeNil)
			second, err := svc.CalculateCompositeScore(ctx, "t1", opts)
			So(err, ShouldBeNil)

			Convey("Then the current month is not its own previous period", func() {
				So(first.PeriodLabel, ShouldEqual, "2026-03")
				So(first.PreviousScore, ShouldBeNil)
				So(second.PreviousScore, ShouldBeNil)
				So(cmp.Diff(first, second), ShouldBeEmpty)
			})
		})

		Convey("When February was scored before", func() {
			So(store.UpsertComposite(ctx, model.CompositeScore{ScopeID: "t1", PeriodLabel: "2026-02", Score: 40}), ShouldBeNil)
			c, err := svc.CalculateCompositeScore(ctx, "t1", opts)
			So(err, ShouldBeNil)

			Convey("Then the trend compares against February", func() {
				So(c.PreviousScore, ShouldNotBeNil)
				So(*c.PreviousScore, ShouldEqual, 40)
			})
		})
	})
}

func TestService_SameDayCycles(t *testing.T) {
	ctx := context.Background()

	Convey("Given a calibrated team with no recent rows", t, func() {
		store := repository.NewMemStore()
		So(store.PutTeam(ctx, model.Team{ID: "t1", OrgID: "o1"}), ShouldBeNil)
		So(store.PutBaseline(ctx, model.Baseline{
			TeamID:     "t1",
			Value:      60,
			Signals:    map[string]float64{model.SignalAfterHours: 0.10},
			CapturedAt: now.AddDate(0, 0, -30),
		}), ShouldBeNil)
		svc := newService(store)

		first, err := svc.DetectDriftForAllTeams(ctx, service.DetectOptions{Cycle: "2026-10-17T11:00:00Z"})
		So(err, ShouldBeNil)
		So(first.Processed, ShouldResemble, []string{"t1"})

		So(store.InsertMetrics(ctx, []model.MetricSnapshot{{
			TeamID:         "t1",
			OrgID:          "o1",
			Day:            model.Day(now),
			AfterHoursRate: model.Float(0.20),
		}}), ShouldBeNil)

		Convey("When a later tick on the same day sweeps with its own cycle", func() {
			second, err := svc.DetectDriftForAllTeams(ctx, service.DetectOptions{Cycle: "2026-10-17T12:00:00Z"})
			So(err, ShouldBeNil)

			Convey("Then the team is processed again and the new breach is recorded", func() {
				So(second.Processed, ShouldResemble, []string{"t1"})
				So(second.Skipped, ShouldBeEmpty)

				events, err := svc.ListDriftEvents(ctx, "t1")
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 1)
				So(events[0].Metric, ShouldEqual, "afterHours")
			})
		})

		Convey("When the first tick's cycle is reused", func() {
			again, err := svc.DetectDriftForAllTeams(ctx, service.DetectOptions{Cycle: "2026-10-17T11:00:00Z"})
			So(err, ShouldBeNil)

			Convey("Then the completed team is skipped", func() {
				So(again.Skipped, ShouldResemble, []string{"t1"})
			})
		})
	})
}

// faultyStore injects failures into a MemStore.
type faultyStore struct {
	*repository.MemStore

	mu             sync.Mutex
	metricFailures map[string]int
	upsertFailures int
	upsertCalls    int
}

func (s *faultyStore) Metrics(ctx context.Context, teamIDs []string, from, to time.Time) ([]model.MetricSnapshot, error) {
	s.mu.Lock()
	for _, id := range teamIDs {
		if s.metricFailures[id] > 0 {
			s.metricFailures[id]--
			s.mu.Unlock()
			return nil, repository.ErrTransient
		}
	}
	s.mu.Unlock()
	return s.MemStore.Metrics(ctx, teamIDs, from, to)
}

func (s *faultyStore) UpsertComposite(ctx context.Context, c model.CompositeScore) error {
	s.mu.Lock()
	s.upsertCalls++
	fail := s.upsertFailures > 0
	if fail {
		s.upsertFailures--
	}
	s.mu.Unlock()
	if fail {
		return repository.ErrTransient
	}
	return s.MemStore.UpsertComposite(ctx, c)
}
