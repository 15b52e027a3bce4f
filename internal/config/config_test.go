package config_test

import (
	"errors"
	"testing"

	"github.com/okian/driftwatch/internal/config"
	"github.com/okian/driftwatch/internal/domain/drift"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have documented defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBPath, convey.ShouldBeEmpty)
			convey.So(cfg.WindowDays, convey.ShouldEqual, 7)
			convey.So(cfg.PeriodDays, convey.ShouldEqual, 7)
			convey.So(cfg.HistoryRetentionDays, convey.ShouldEqual, 90)
			convey.So(cfg.HistoryMaxEntries, convey.ShouldEqual, 0)
			convey.So(cfg.SweepIntervalMinutes, convey.ShouldEqual, 1440)
			convey.So(cfg.PillarWeights["execution"], convey.ShouldEqual, 0.30)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = "" },
			"zero window":        func(c *config.Config) { c.WindowDays = 0 },
			"zero period":        func(c *config.Config) { c.PeriodDays = 0 },
			"zero retention":     func(c *config.Config) { c.HistoryRetentionDays = 0 },
			"negative cap":       func(c *config.Config) { c.HistoryMaxEntries = -1 },
			"negative weight":    func(c *config.Config) { c.PillarWeights["culture"] = -0.1 },
			"unknown polarity":   func(c *config.Config) { c.Thresholds["afterHours"] = drift.Override{Threshold: 10, Polarity: "sideways"} },
			"negative threshold": func(c *config.Config) { c.Thresholds["afterHours"] = drift.Override{Threshold: -1} },
			"unknown log level":  func(c *config.Config) { c.LogLevel = "loud" },
		}

		for name, mutate := range cases {
			convey.Convey("Then "+name+" is rejected", func() {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
