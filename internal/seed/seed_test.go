package seed_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/driftwatch/internal/adapters/repository"
	service "github.com/okian/driftwatch/internal/app"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/internal/seed"
	"github.com/okian/driftwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var end = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func baseConfig() seed.Config {
	return seed.Config{Teams: 4, Orgs: 2, Days: 21, End: end, DriftTeams: 1, DriftDays: 7, DriftPct: 60, Seed: 42}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seed configuration", t, func() {
		cfg := baseConfig()

		Convey("When generating twice with the same seed", func() {
			a, err := seed.Generate(ctx, cfg)
			So(err, ShouldBeNil)
			b, err := seed.Generate(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then the datasets are identical", func() {
				So(cmp.Diff(a, b), ShouldBeEmpty)
			})

			Convey("Then every team has one row per day ending on the end day", func() {
				So(a.Teams, ShouldHaveLength, 4)
				So(a.Rows, ShouldHaveLength, 4*21)
				So(a.Rows[20].Day, ShouldEqual, end)
				So(a.Rows[0].Day, ShouldEqual, end.AddDate(0, 0, -20))
				So(a.Teams[1].OrgID, ShouldEqual, "org-1")
				So(a.Drifting, ShouldResemble, []string{a.Teams[0].ID})
			})

			Convey("Then values stay within their ranges", func() {
				for _, r := range a.Rows {
					So(*r.AfterHoursRate, ShouldBeBetweenOrEqual, 0, 1)
					So(*r.FocusTimeRatio, ShouldBeBetweenOrEqual, 0, 1)
					So(*r.SentimentScore, ShouldBeBetweenOrEqual, -1, 1)
				}
			})
		})

		Convey("When a value can be missing", func() {
			cfg.MissingRate = 0.5
			ds, err := seed.Generate(ctx, cfg)
			So(err, ShouldBeNil)

			Convey("Then some values are absent", func() {
				missing := 0
				for i := range ds.Rows {
					for _, s := range model.AllSignals {
						if ds.Rows[i].Value(s) == nil {
							missing++
						}
					}
				}
				So(missing, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the configuration is invalid", func() {
			cfg.DriftTeams = 9
			_, err := seed.Generate(ctx, cfg)
			So(errors.Is(err, seed.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given a generated dataset with one strongly drifting team", t, func() {
		cfg := baseConfig()
		ds, err := seed.Generate(ctx, cfg)
		So(err, ShouldBeNil)

		store := repository.NewMemStore()
		svc := service.New(store,
			service.WithClock(func() time.Time { return end.Add(12 * time.Hour) }),
			service.WithLogger(logger.Nop()),
		)

		Convey("When loading and calibrating before the shift", func() {
			stats, err := seed.Load(ctx, store, svc, ds, end.AddDate(0, 0, -8))
			So(err, ShouldBeNil)
			So(stats.Teams, ShouldEqual, 4)
			So(stats.Rows, ShouldEqual, 84)
			So(stats.Calibrated, ShouldEqual, 4)

			Convey("Then a sweep flags the drifting team", func() {
				_, err := svc.DetectDriftForAllTeams(ctx, service.DetectOptions{})
				So(err, ShouldBeNil)

				events, err := store.ListDriftEvents(ctx, ds.Drifting[0])
				So(err, ShouldBeNil)
				So(events, ShouldNotBeEmpty)
			})
		})

		Convey("When loading without a calibrator", func() {
			stats, err := seed.Load(ctx, store, nil, ds, time.Time{})
			So(err, ShouldBeNil)
			So(stats.Calibrated, ShouldEqual, 0)

			ids, err := store.BaselineTeams(ctx)
			So(err, ShouldBeNil)
			So(ids, ShouldBeEmpty)
		})
	})
}
