package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/adapters/repository/sqlite"
	"github.com/okian/driftwatch/internal/config"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/pkg/logger"
	"github.com/okian/driftwatch/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		cfg := config.New()

		convey.Convey("When no database path is set", func() {
			store, err := openStore(cfg)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the in-memory store is used", func() {
				_, ok := store.(*repository.MemStore)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(store.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a database path is set", func() {
			cfg.DBPath = filepath.Join(t.TempDir(), "driftwatch.db")
			store, err := openStore(cfg)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the sqlite store is used", func() {
				_, ok := store.(*sqlite.Store)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(store.Close(), convey.ShouldBeNil)
			})
		})
	})
}

func TestSweepOnce(t *testing.T) {
	convey.Convey("Given a service over a store with one calibrated team", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		convey.So(store.PutTeam(ctx, model.Team{ID: "t1", OrgID: "o1"}), convey.ShouldBeNil)

		today := model.Day(time.Now().UTC())
		var rows []model.MetricSnapshot
		for i := 6; i >= 0; i-- {
			rows = append(rows, model.MetricSnapshot{
				TeamID:         "t1",
				OrgID:          "o1",
				Day:            today.AddDate(0, 0, -i),
				AfterHoursRate: model.Float(0.1),
				FocusTimeRatio: model.Float(0.6),
			})
		}
		convey.So(store.InsertMetrics(ctx, rows), convey.ShouldBeNil)

		cfg := config.New()
		cfg.WorkerCount = 2
		svc := newService(cfg, store, logger.Nop())
		_, err := svc.SetBaseline(ctx, "t1", nil, nil)
		convey.So(err, convey.ShouldBeNil)

		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		convey.Convey("When one sweep round runs", func() {
			sweepOnce(ctx, svc, "2026-10-17T00:00:00Z", logger.Nop())

			convey.Convey("Then the team and its organization are scored", func() {
				team, err := store.ListComposites(ctx, "t1", 0)
				convey.So(err, convey.ShouldBeNil)
				convey.So(team, convey.ShouldHaveLength, 1)

				org, err := store.ListComposites(ctx, "o1", 0)
				convey.So(err, convey.ShouldBeNil)
				convey.So(org, convey.ShouldHaveLength, 1)
			})

			convey.Convey("Then a history snapshot is captured", func() {
				h, err := store.History(ctx, "t1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(h, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the sweep driver is started with a cancelled context", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			convey.Convey("Then it returns after the first round", func() {
				done := make(chan struct{})
				go func() {
					runSweeps(cctx, svc, time.Hour, logger.Nop())
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(5 * time.Second):
					t.Fatal("sweep driver did not stop")
				}
			})
		})

		convey.Convey("When service metrics are refreshed", func() {
			updateServiceMetrics(ctx, svc)

			convey.Convey("Then the registry exposes the worker gauge", func() {
				n, err := testutil.GatherAndCount(metrics.GetRegistry(), "driftwatch_engine_worker_count")
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)
			})
		})
	})
}

func TestRegisterRuntimeCollectors(t *testing.T) {
	convey.Convey("Given the process registry", t, func() {
		convey.Convey("When runtime collectors are registered twice", func() {
			convey.So(registerRuntimeCollectors, convey.ShouldNotPanic)
			convey.So(registerRuntimeCollectors, convey.ShouldNotPanic)

			convey.Convey("Then Go runtime metrics are gathered", func() {
				n, err := testutil.GatherAndCount(metrics.GetRegistry(), "go_goroutines")
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)
			})
		})
	})
}

func TestTickCycle(t *testing.T) {
	convey.Convey("Given an hourly sweep interval", t, func() {
		every := time.Hour
		base := time.Date(2026, 10, 17, 11, 0, 0, 0, time.UTC)

		convey.Convey("Then ticks within one interval share a cycle", func() {
			convey.So(tickCycle(base.Add(5*time.Minute), every), convey.ShouldEqual, tickCycle(base.Add(55*time.Minute), every))
			convey.So(tickCycle(base.Add(5*time.Minute), every), convey.ShouldEqual, "2026-10-17T11:00:00Z")
		})

		convey.Convey("Then ticks on the same day in different intervals do not", func() {
			convey.So(tickCycle(base, every), convey.ShouldNotEqual, tickCycle(base.Add(every), every))
		})
	})

	convey.Convey("Given a daily sweep interval", t, func() {
		convey.Convey("Then the cycle is the UTC day", func() {
			at := time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC)
			convey.So(tickCycle(at, 24*time.Hour), convey.ShouldEqual, "2026-10-17T00:00:00Z")
		})
	})
}
