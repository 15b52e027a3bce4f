package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/internal/domain/period"
	"github.com/okian/driftwatch/internal/domain/scoring"
	"github.com/okian/driftwatch/internal/domain/window"
	"github.com/okian/driftwatch/pkg/logger"
	"github.com/okian/driftwatch/pkg/metrics"
)

const (
	defaultHistoryLimit = 12
	weightTolerance     = 1e-6
)

// ScoreOptions parameterize composite scoring.
type ScoreOptions struct {
	PeriodDays       int
	Weights          map[string]float64
	ForceRecalculate bool
}

// HistoryOptions select a score history.
type HistoryOptions struct {
	TeamID string
	Limit  int
}

// CalculateCompositeScore returns the composite for the scope's current period.
// A stored record for the period is returned as is unless ForceRecalculate is
// set; otherwise the score is computed and upserted.
func (s *Service) CalculateCompositeScore(ctx context.Context, scopeID string, opts ScoreOptions) (model.CompositeScore, error) {
	days := s.periodDaysOr(opts.PeriodDays)
	cur := period.Current(s.now(), days)

	if !opts.ForceRecalculate {
		stored, err := s.store.GetComposite(ctx, scopeID, cur.Label)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return model.CompositeScore{}, fmt.Errorf("read composite: %w", err)
		}
	}

	c, err := s.computeComposite(ctx, scopeID, cur, days, opts.Weights)
	if err != nil {
		return model.CompositeScore{}, err
	}
	err = repository.WithRetry(ctx, "upsert_composite", func(ctx context.Context) error {
		return s.store.UpsertComposite(ctx, c)
	})
	if err != nil {
		return model.CompositeScore{}, fmt.Errorf("scope %s period %s: store composite: %w", scopeID, c.PeriodLabel, err)
	}

	metrics.RecordCompositeScore(string(c.Zone))
	if c.Degraded {
		metrics.RecordDegraded("composite")
	}
	s.logger.Debug(ctx, "composite scored",
		logger.String("scope", scopeID),
		logger.String("period", c.PeriodLabel),
		logger.Int("score", c.Score),
		logger.String("zone", string(c.Zone)),
	)
	return c, nil
}

// computeComposite calculates without storing.
func (s *Service) computeComposite(ctx context.Context, scopeID string, cur period.Period, days int, weights map[string]float64) (model.CompositeScore, error) {
	teamIDs, err := s.resolveScope(ctx, scopeID)
	if err != nil {
		return model.CompositeScore{}, err
	}
	rows, err := s.store.Metrics(ctx, teamIDs, cur.Start, cur.End)
	if err != nil {
		return model.CompositeScore{}, fmt.Errorf("scope %s: read metrics: %w", scopeID, err)
	}

	in := scoring.Input{
		ScopeID:  scopeID,
		Averages: window.Averages(rows),
		Weights:  weights,
	}
	in.Averages.DecisionClosureRate = decisionClosure(rows, in.Averages.DecisionClosureRate)

	prevPeriod := period.Previous(cur, days)
	prev, err := s.store.GetComposite(ctx, scopeID, prevPeriod.Label)
	switch {
	case err == nil && prevPeriod.Label != cur.Label:
		in.Previous = &prev
	case err == nil:
		// A label never precedes itself.
	case !errors.Is(err, repository.ErrNotFound):
		return model.CompositeScore{}, fmt.Errorf("scope %s: read previous composite: %w", scopeID, err)
	}

	latest, err := s.store.LatestDriftEvent(ctx, teamIDs)
	switch {
	case err == nil:
		// A label never precedes itself.
		in.LatestDrift = &latest
	case !errors.Is(err, repository.ErrNotFound):
		return model.CompositeScore{}, fmt.Errorf("scope %s: read latest drift: %w", scopeID, err)
	}

	if len(weights) > 0 {
		s.checkWeights(ctx, scopeID, weights)
	}

	c := s.calculator.Calculate(in)
	c.PeriodLabel = cur.Label
	c.PeriodStart = cur.Start
	c.PeriodEnd = cur.End
	return c, nil
}

// decisionClosure keeps the averaged rate only when the window has any
// meeting, message or thread activity to close.
func decisionClosure(rows []model.MetricSnapshot, avg *float64) *float64 {
	totals := window.Totals(rows)
	for _, sig := range []string{model.SignalMeetingCount, model.SignalMessageCount, model.SignalThreadCount} {
		if v := totals.Value(sig); v != nil && *v != 0 {
			return avg
		}
	}
	return nil
}

// checkWeights warns when caller weights do not sum to 1. They are used as given.
func (s *Service) checkWeights(ctx context.Context, scopeID string, weights map[string]float64) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		s.logger.Warn(ctx, "pillar weights do not sum to 1",
			logger.String("scope", scopeID),
			logger.Float64("sum", sum),
		)
	}
}

// currentScore is the scope's composite for the period ending at asOf.
func (s *Service) currentScore(ctx context.Context, teamID string, asOf time.Time) (float64, error) {
	days := s.periodDaysOr(0)
	c, err := s.computeComposite(ctx, teamID, period.Current(asOf, days), days, nil)
	if err != nil {
		return 0, err
	}
	return float64(c.Score), nil
}

// GetScoreHistory returns stored composites for the scope, or for
// opts.TeamID when set, oldest first.
func (s *Service) GetScoreHistory(ctx context.Context, scopeID string, opts HistoryOptions) ([]model.CompositeScore, error) {
	id := scopeID
	if opts.TeamID != "" {
		id = opts.TeamID
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	list, err := s.store.ListComposites(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list composites: %w", err)
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

func (s *Service) periodDaysOr(days int) int {
	if days > 0 {
		return days
	}
	return s.periodDays
}
