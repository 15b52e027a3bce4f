package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/driftwatch/internal/adapters/repository/sqlite"
	service "github.com/okian/driftwatch/internal/app"
	"github.com/okian/driftwatch/internal/seed"
	"github.com/okian/driftwatch/pkg/logger"
)

// Default generation constants.
const (
	defaultTeams      = 20
	defaultOrgs       = 3
	defaultDays       = 60
	defaultDriftTeams = 3
	defaultDriftDays  = 7
	defaultDriftPct   = 40
	defaultTimeout    = 10 * time.Minute
)

func main() {
	var (
		dbPath     = flag.String("db", "driftwatch.db", "sqlite database file to seed")
		teams      = flag.Int("teams", defaultTeams, "Number of teams")
		orgs       = flag.Int("orgs", defaultOrgs, "Number of organizations teams are spread over")
		days       = flag.Int("days", defaultDays, "Days of history per team, ending today")
		driftTeams = flag.Int("drift-teams", defaultDriftTeams, "Teams whose load shifts at the end")
		driftDays  = flag.Int("drift-days", defaultDriftDays, "Length of the shift in days")
		driftPct   = flag.Float64("drift-pct", defaultDriftPct, "Size of the shift in percent")
		missing    = flag.Float64("missing", 0.02, "Probability that a value is absent")
		seedValue  = flag.Uint64("seed", 1, "Random seed")
		calibrate  = flag.Bool("calibrate", true, "Set every team's baseline just before the shift")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cfg := seed.Config{
		Teams:       *teams,
		Orgs:        *orgs,
		Days:        *days,
		End:         time.Now().UTC(),
		DriftTeams:  *driftTeams,
		DriftDays:   *driftDays,
		DriftPct:    *driftPct,
		MissingRate: *missing,
		Seed:        *seedValue,
	}
	if err := run(ctx, *dbPath, cfg, *calibrate); err != nil {
		logger.Get().Error(ctx, "seed failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath string, cfg seed.Config, calibrate bool) error {
	ds, err := seed.Generate(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var calibrator seed.Calibrator
	if calibrate {
		calibrator = service.New(store, service.WithLogger(logger.Named("seed")))
	}
	calibrateAt := cfg.End.AddDate(0, 0, -cfg.DriftDays-1)

	_, err = seed.Load(ctx, store, calibrator, ds, calibrateAt)
	return err
}
