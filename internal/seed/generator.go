// Package seed generates synthetic daily team metrics for local runs and
// demos.
package seed

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/pkg/logger"
)

// teamNamespace derives stable team ids so reseeding the same database
// targets the same teams.
var teamNamespace = uuid.MustParse("7d0f3c8e-2b61-4f0e-9a57-0b3c1e5d9a44") //nolint:gochecknoglobals // fixed namespace

// profile is a signal's typical mean, day-to-day spread and valid range.
type profile struct {
	mean, spread, min, max float64
}

//nolint:gochecknoglobals // static table
var profiles = map[string]profile{
	model.SignalMeetingLoad:         {mean: 12, spread: 2, min: 0, max: 40},
	model.SignalAfterHours:          {mean: 0.12, spread: 0.02, min: 0, max: 1},
	model.SignalResponseLatency:     {mean: 3.5, spread: 0.6, min: 0, max: 48},
	model.SignalSentiment:           {mean: 0.35, spread: 0.08, min: -1, max: 1},
	model.SignalFocusTime:           {mean: 0.55, spread: 0.06, min: 0, max: 1},
	model.SignalRecoveryDays:        {mean: 2.5, spread: 0.5, min: 0, max: 14},
	model.SignalNetworkBreadth:      {mean: 14, spread: 2, min: 0, max: 100},
	model.SignalInterruptionRate:    {mean: 2.2, spread: 0.4, min: 0, max: 20},
	model.SignalFlowEfficiency:      {mean: 0.5, spread: 0.05, min: 0, max: 1},
	model.SignalDecisionLatency:     {mean: 30, spread: 6, min: 0, max: 240},
	model.SignalExperimentRate:      {mean: 0.2, spread: 0.04, min: 0, max: 1},
	model.SignalCrossTeamRatio:      {mean: 0.3, spread: 0.05, min: 0, max: 1},
	model.SignalEnergyIndex:         {mean: 62, spread: 5, min: 0, max: 100},
	model.SignalDecisionClosureRate: {mean: 0.6, spread: 0.08, min: 0, max: 1},
	model.SignalMessageCount:        {mean: 140, spread: 25, min: 0, max: 5000},
	model.SignalThreadCount:         {mean: 35, spread: 6, min: 0, max: 1000},
	model.SignalMeetingCount:        {mean: 9, spread: 2, min: 0, max: 60},
}

// Config controls what Generate produces.
type Config struct {
	Teams int
	Orgs  int
	Days  int
	// End is the last generated day; zero means today (UTC).
	End time.Time
	// DriftTeams is how many teams get a shift over the final DriftDays.
	DriftTeams int
	DriftDays  int
	// DriftPct multiplies the after-hours and meeting-load signals of drifting
	// teams, e.g. 40 raises them by 40 percent.
	DriftPct float64
	// MissingRate is the probability that any single value is absent.
	MissingRate float64
	Seed        uint64
}

// Dataset is a generated set of teams and their rows.
type Dataset struct {
	Teams    []model.Team
	Rows     []model.MetricSnapshot
	Drifting []string
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Teams <= 0:
		return fmt.Errorf("%w: teams must be positive", ErrInvalidConfig)
	case c.Orgs <= 0:
		return fmt.Errorf("%w: orgs must be positive", ErrInvalidConfig)
	case c.Days <= 0:
		return fmt.Errorf("%w: days must be positive", ErrInvalidConfig)
	case c.DriftTeams < 0 || c.DriftTeams > c.Teams:
		return fmt.Errorf("%w: drift teams must be between 0 and teams", ErrInvalidConfig)
	case c.DriftDays < 0 || c.DriftDays > c.Days:
		return fmt.Errorf("%w: drift days must be between 0 and days", ErrInvalidConfig)
	case c.MissingRate < 0 || c.MissingRate >= 1:
		return fmt.Errorf("%w: missing rate must be in [0, 1)", ErrInvalidConfig)
	}
	return nil
}

// Generate builds a deterministic dataset for cfg. The same seed always
// yields the same rows.
func Generate(ctx context.Context, cfg Config) (Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return Dataset{}, err
	}
	end := cfg.End
	if end.IsZero() {
		end = time.Now()
	}
	end = model.Day(end)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // synthetic data

	logger.Get().Info(ctx, "generating metrics",
		logger.Int("teams", cfg.Teams),
		logger.Int("orgs", cfg.Orgs),
		logger.Int("days", cfg.Days),
	)

	ds := Dataset{
		Teams: make([]model.Team, 0, cfg.Teams),
		Rows:  make([]model.MetricSnapshot, 0, cfg.Teams*cfg.Days),
	}
	for i := 0; i < cfg.Teams; i++ {
		team := model.Team{
			ID:    uuid.NewSHA1(teamNamespace, []byte(fmt.Sprintf("team-%d", i))).String(),
			OrgID: fmt.Sprintf("org-%d", i%cfg.Orgs),
			Name:  fmt.Sprintf("Team %d", i+1),
		}
		ds.Teams = append(ds.Teams, team)
		drifting := i < cfg.DriftTeams
		if drifting {
			ds.Drifting = append(ds.Drifting, team.ID)
		}

		// Each team sits somewhat off the population mean.
		offset := make(map[string]float64, len(profiles))
		for _, s := range model.AllSignals {
			offset[s] = rng.NormFloat64() * profiles[s].spread
		}

		for d := cfg.Days - 1; d >= 0; d-- {
			if err := ctx.Err(); err != nil {
				return Dataset{}, err
			}
			row := model.MetricSnapshot{TeamID: team.ID, OrgID: team.OrgID, Day: end.AddDate(0, 0, -d)}
			shift := drifting && d < cfg.DriftDays
			for _, s := range model.AllSignals {
				if rng.Float64() < cfg.MissingRate {
					continue
				}
				p := profiles[s]
				v := p.mean + offset[s] + rng.NormFloat64()*p.spread/2
				if shift && (s == model.SignalAfterHours || s == model.SignalMeetingLoad) {
					v *= 1 + cfg.DriftPct/100
				}
				row.Set(s, model.Float(clamp(v, p.min, p.max)))
			}
			ds.Rows = append(ds.Rows, row)
		}
	}
	return ds, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
