package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/driftwatch/internal/config"
	"github.com/okian/driftwatch/internal/domain/drift"
	"github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "driftwatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// clearEnv unsets every variable the tests touch; t.Setenv restores them.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"DRIFTWATCH_CONFIG", "DRIFTWATCH_ADDR", "DRIFTWATCH_WINDOW_DAYS",
		"DRIFTWATCH_DB_PATH", "DRIFTWATCH_HISTORY_MAX_ENTRIES",
	} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearEnv(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load()

			convey.Convey("Then defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.WindowDays, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("DRIFTWATCH_ADDR", ":8080")
			t.Setenv("DRIFTWATCH_WINDOW_DAYS", "14")
			t.Setenv("DRIFTWATCH_DB_PATH", "/tmp/drift.db")
			t.Setenv("DRIFTWATCH_HISTORY_MAX_ENTRIES", "200")

			cfg, err := config.Load()

			convey.Convey("Then env overrides defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WindowDays, convey.ShouldEqual, 14)
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/drift.db")
				convey.So(cfg.HistoryMaxEntries, convey.ShouldEqual, 200)
			})
		})

		convey.Convey("When loading config with a YAML file and env", func() {
			path := writeConfig(t, `
addr: ":9090"
period_days: 30
thresholds:
  afterHours:
    threshold: 25
  focusTime:
    threshold: 0.4
    polarity: floor
`)
			t.Setenv("DRIFTWATCH_CONFIG", path)
			t.Setenv("DRIFTWATCH_ADDR", ":7070")

			cfg, err := config.Load()

			convey.Convey("Then the file is applied and env wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.PeriodDays, convey.ShouldEqual, 30)
				convey.So(cfg.Thresholds["afterHours"].Threshold, convey.ShouldEqual, 25)
				convey.So(cfg.Thresholds["focusTime"].Polarity, convey.ShouldEqual, drift.PolarityFloor)
			})
		})

		convey.Convey("When the file does not exist", func() {
			t.Setenv("DRIFTWATCH_CONFIG", "/non/existent/file.yaml")
			_, err := config.Load()
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the file sets an invalid value", func() {
			t.Setenv("DRIFTWATCH_CONFIG", writeConfig(t, "window_days: 0\n"))
			_, err := config.Load()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When an env value is not a number", func() {
			t.Setenv("DRIFTWATCH_WINDOW_DAYS", "soon")
			_, err := config.Load()
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})
}
