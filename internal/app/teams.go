package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/drift"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/internal/domain/types"
	"github.com/okian/driftwatch/internal/domain/window"
)

// DetectOptions parameterize drift detection.
type DetectOptions struct {
	WindowDays         int
	ThresholdOverrides map[string]drift.Override
	// Cycle labels a sweep for checkpointing; empty means the UTC date.
	Cycle string
}

// SetBaseline calibrates a team. See baseline.Manager.Set.
func (s *Service) SetBaseline(ctx context.Context, teamID string, value *float64, date *time.Time) (model.Baseline, error) {
	if _, err := s.team(ctx, teamID); err != nil {
		return model.Baseline{}, err
	}
	return s.baselines.Set(ctx, teamID, value, date)
}

// CompareToBaseline returns nil without error for teams not yet calibrated.
func (s *Service) CompareToBaseline(ctx context.Context, teamID string) (*types.Comparison, error) {
	return s.baselines.Compare(ctx, teamID)
}

// RequireBaseline is CompareToBaseline returning baseline.ErrNotCalibrated
// when there is no baseline.
func (s *Service) RequireBaseline(ctx context.Context, teamID string) (*types.Comparison, error) {
	return s.baselines.Require(ctx, teamID)
}

// DetectDriftForTeam runs one detection pass for a team as of now.
func (s *Service) DetectDriftForTeam(ctx context.Context, teamID string, opts DetectOptions) (drift.Result, error) {
	team, err := s.team(ctx, teamID)
	if err != nil {
		return drift.Result{}, err
	}
	return s.detector.DetectTeam(ctx, team, drift.Options{
		WindowDays: s.windowDaysOr(opts.WindowDays),
		Overrides:  opts.ThresholdOverrides,
		AsOf:       s.now(),
	})
}

// ListDriftEvents lists a team's events newest first; an empty id lists all.
func (s *Service) ListDriftEvents(ctx context.Context, teamID string) ([]model.DriftEvent, error) {
	return s.store.ListDriftEvents(ctx, teamID)
}

// AcknowledgeDriftEvent marks an event handled.
func (s *Service) AcknowledgeDriftEvent(ctx context.Context, id string) (model.DriftEvent, error) {
	var e model.DriftEvent
	err := repository.WithRetry(ctx, "ack_drift_event", func(ctx context.Context) error {
		var err error
		e, err = s.store.AcknowledgeDriftEvent(ctx, id)
		return err
	})
	return e, err
}

// CreateSnapshot captures the team's current score and window averages into
// its history.
func (s *Service) CreateSnapshot(ctx context.Context, teamID string) (model.HistorySnapshot, error) {
	if _, err := s.team(ctx, teamID); err != nil {
		return model.HistorySnapshot{}, err
	}
	now := s.now().UTC()
	score, err := s.currentScore(ctx, teamID, now)
	if err != nil {
		return model.HistorySnapshot{}, err
	}
	from, to := window.Bounds(now, s.windowDays)
	rows, err := s.store.Metrics(ctx, []string{teamID}, from, to)
	if err != nil {
		return model.HistorySnapshot{}, fmt.Errorf("team %s: read metrics: %w", teamID, err)
	}
	avg := window.Averages(rows)

	snap := model.HistorySnapshot{
		TeamID:     teamID,
		Score:      score,
		Signals:    window.SignalMap(&avg),
		CapturedAt: now,
	}
	if _, err := s.tracker.Record(ctx, snap); err != nil {
		return model.HistorySnapshot{}, fmt.Errorf("team %s: %w", teamID, err)
	}
	return snap, nil
}

// GetHistoryRange returns the team's snapshots of the last days, oldest first.
func (s *Service) GetHistoryRange(ctx context.Context, teamID string, days int) ([]model.HistorySnapshot, error) {
	return s.tracker.Range(ctx, teamID, days)
}

// CalculateTrend compares the snapshots nearest to start and end; nil when
// either is missing.
func (s *Service) CalculateTrend(ctx context.Context, teamID string, start, end time.Time) (*types.TrendResult, error) {
	return s.tracker.Trend(ctx, teamID, start, end)
}

// Velocity returns the team's recent score velocity, nil with too little history.
func (s *Service) Velocity(ctx context.Context, teamID string) (*float64, error) {
	return s.tracker.Velocity(ctx, teamID)
}

func (s *Service) team(ctx context.Context, teamID string) (model.Team, error) {
	t, err := s.store.GetTeam(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Team{}, fmt.Errorf("team %s: %w", teamID, ErrScopeNotFound)
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("team %s: %w", teamID, err)
	}
	return t, nil
}

func (s *Service) windowDaysOr(days int) int {
	if days > 0 {
		return days
	}
	return s.windowDays
}
