// Package baseline captures and compares the reference snapshot a team's
// metrics are measured against.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/internal/domain/types"
	"github.com/okian/driftwatch/internal/domain/window"
	"github.com/okian/driftwatch/pkg/logger"
)

const defaultWindowDays = 7

// Store is the persistence the manager needs.
type Store interface {
	repository.BaselineStore
	repository.MetricReader
}

// Scorer returns a team's current composite score as of a time.
type Scorer interface {
	CurrentScore(ctx context.Context, teamID string, asOf time.Time) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, teamID string, asOf time.Time) (float64, error)

// CurrentScore calls f.
func (f ScorerFunc) CurrentScore(ctx context.Context, teamID string, asOf time.Time) (float64, error) {
	return f(ctx, teamID, asOf)
}

// Manager sets and compares baselines.
type Manager struct {
	store      Store
	scorer     Scorer
	windowDays int
	now        func() time.Time
	log        logger.Logger
}

// NewManager creates a manager. scorer supplies the value of a baseline when
// the caller does not give one, and the current value in comparisons.
func NewManager(store Store, scorer Scorer, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		scorer:     scorer,
		windowDays: defaultWindowDays,
		now:        time.Now,
		log:        logger.Get().Named("baseline"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set captures the team's baseline, replacing any previous one. With a nil
// value the team's composite score at the capture date is used. With a nil
// date the capture date is now. The stored signals are the averages of the
// window ending at the capture date.
func (m *Manager) Set(ctx context.Context, teamID string, value *float64, date *time.Time) (model.Baseline, error) {
	at := m.now().UTC()
	if date != nil {
		at = date.UTC()
	}

	from, to := window.Bounds(at, m.windowDays)
	rows, err := m.store.Metrics(ctx, []string{teamID}, from, to)
	if err != nil {
		return model.Baseline{}, fmt.Errorf("read metrics: %w", err)
	}
	avg := window.Averages(rows)

	b := model.Baseline{
		TeamID:     teamID,
		Signals:    window.SignalMap(&avg),
		CapturedAt: at,
	}
	if value != nil {
		b.Value = *value
	} else {
		if b.Value, err = m.scorer.CurrentScore(ctx, teamID, at); err != nil {
			return model.Baseline{}, fmt.Errorf("current score: %w", err)
		}
	}

	err = repository.WithRetry(ctx, "put_baseline", func(ctx context.Context) error {
		return m.store.PutBaseline(ctx, b)
	})
	if err != nil {
		return model.Baseline{}, fmt.Errorf("store baseline: %w", err)
	}
	m.log.Info(ctx, "baseline set",
		logger.String("team", teamID),
		logger.Float64("value", b.Value),
		logger.Int("signals", len(b.Signals)),
	)
	return b, nil
}

// Compare returns the team's current score against its baseline, or nil when
// the team was never calibrated.
func (m *Manager) Compare(ctx context.Context, teamID string) (*types.Comparison, error) {
	c, err := m.Require(ctx, teamID)
	if errors.Is(err, ErrNotCalibrated) {
		return nil, nil
	}
	return c, err
}

// Require is Compare for callers that need a baseline; it returns
// ErrNotCalibrated when there is none.
func (m *Manager) Require(ctx context.Context, teamID string) (*types.Comparison, error) {
	b, err := m.store.GetBaseline(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("team %s: %w", teamID, ErrNotCalibrated)
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	now := m.now().UTC()
	current, err := m.scorer.CurrentScore(ctx, teamID, now)
	if err != nil {
		return nil, fmt.Errorf("current score: %w", err)
	}

	change := current - b.Value
	den := b.Value
	if den == 0 {
		den = 1
	}
	return &types.Comparison{
		TeamID:            teamID,
		BaselineValue:     b.Value,
		CurrentValue:      current,
		Change:            round2(change),
		PercentChange:     round2(change / den * 100),
		DaysSinceBaseline: daysBetween(b.CapturedAt, now),
		BaselineDate:      b.CapturedAt,
	}, nil
}

func daysBetween(from, to time.Time) int {
	d := int(model.Day(to).Sub(model.Day(from)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
