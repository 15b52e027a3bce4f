package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/driftwatch/internal/adapters/mq/queue"
	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/drift"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/internal/domain/period"
	"github.com/okian/driftwatch/internal/domain/types"
	"github.com/okian/driftwatch/pkg/logger"
	"github.com/okian/driftwatch/pkg/metrics"
)

// SweepScoreOptions parameterize a scoring sweep.
type SweepScoreOptions struct {
	PeriodDays int
	Weights    map[string]float64
	// Cycle labels a sweep for checkpointing; empty means the UTC date.
	Cycle string
}

// sweepJob is the work behind a queued job id.
type sweepJob struct {
	ctx context.Context
	run func(ctx context.Context) error
}

// DetectDriftForAllTeams runs detection for every calibrated team. Teams
// already completed in the same cycle are skipped; failed teams are retried on
// the next call with that cycle. Per-team failures are reported, not returned.
func (s *Service) DetectDriftForAllTeams(ctx context.Context, opts DetectOptions) (types.SweepReport, error) {
	ids, err := s.store.BaselineTeams(ctx)
	if err != nil {
		return types.SweepReport{}, fmt.Errorf("list calibrated teams: %w", err)
	}
	teams := make([]model.Team, 0, len(ids))
	for _, id := range ids {
		t, err := s.store.GetTeam(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			t = model.Team{ID: id}
		} else if err != nil {
			return types.SweepReport{}, fmt.Errorf("team %s: %w", id, err)
		}
		teams = append(teams, t)
	}

	dopts := drift.Options{
		WindowDays: s.windowDaysOr(opts.WindowDays),
		Overrides:  opts.ThresholdOverrides,
		AsOf:       s.now(),
	}
	return s.sweep(ctx, model.JobDetect, opts.Cycle, teams, func(ctx context.Context, t model.Team) error {
		_, err := s.detector.DetectTeam(ctx, t, dopts)
		return err
	})
}

// ScoreAllTeams computes every team's composite and history snapshot, then
// each organization's composite. Organization failures are reported under the
// organization id.
func (s *Service) ScoreAllTeams(ctx context.Context, opts SweepScoreOptions) (types.SweepReport, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return types.SweepReport{}, fmt.Errorf("list teams: %w", err)
	}
	metrics.UpdateTeamsTracked(len(teams))

	sopts := ScoreOptions{PeriodDays: opts.PeriodDays, Weights: opts.Weights, ForceRecalculate: true}
	report, err := s.sweep(ctx, model.JobScore, opts.Cycle, teams, func(ctx context.Context, t model.Team) error {
		if _, err := s.CalculateCompositeScore(ctx, t.ID, sopts); err != nil {
			return err
		}
		_, err := s.CreateSnapshot(ctx, t.ID)
		return err
	})
	if err != nil {
		return report, err
	}

	orgs := make(map[string]struct{})
	for _, t := range teams {
		if t.OrgID != "" {
			orgs[t.OrgID] = struct{}{}
		}
	}
	for _, org := range sortedKeys(orgs) {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if _, err := s.CalculateCompositeScore(ctx, org, sopts); err != nil {
			report.Failed[org] = err.Error()
			metrics.RecordSweepOutcome(string(model.JobScore), "failed")
			s.logger.Error(ctx, "organization scoring failed",
				logger.String("org", org),
				logger.String("cycle", report.Cycle),
				logger.String("period", period.Current(s.now(), s.periodDaysOr(opts.PeriodDays)).Label),
				logger.Error(err),
			)
			continue
		}
		report.Processed = append(report.Processed, org)
	}
	return report, nil
}

// sweep fans one job per team out to the worker pool and waits for all of
// them. Without a running pool, or when the queue is full, jobs run inline.
func (s *Service) sweep(ctx context.Context, kind model.JobKind, cycle string, teams []model.Team, run func(ctx context.Context, t model.Team) error) (types.SweepReport, error) {
	start := time.Now()
	if cycle == "" {
		cycle = model.DayKey(s.now())
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = types.SweepReport{
			Cycle:     cycle,
			Kind:      string(kind),
			Processed: []string{},
			Skipped:   []string{},
			Failed:    map[string]string{},
		}
	)

	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()

	for _, t := range teams {
		id := model.JobID(cycle, kind, t.ID)
		if s.checkpoint.SeenAndRecord(ctx, id) {
			mu.Lock()
			report.Skipped = append(report.Skipped, t.ID)
			mu.Unlock()
			metrics.RecordSweepOutcome(string(kind), "skipped")
			continue
		}

		s.inflight.Store(id, sweepJob{ctx: ctx, run: func(ctx context.Context) error { return run(ctx, t) }})
		wg.Add(1)
		job := queue.Job{
			ID:     id,
			Kind:   kind,
			Cycle:  cycle,
			TeamID: t.ID,
			OrgID:  t.OrgID,
			Done: func(err error) {
				defer wg.Done()
				s.inflight.Delete(id)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					s.checkpoint.Unrecord(context.Background(), id)
					report.Failed[t.ID] = err.Error()
					metrics.RecordSweepOutcome(string(kind), "failed")
					s.logger.Error(ctx, "sweep job failed",
						logger.String("team", t.ID),
						logger.String("kind", string(kind)),
						logger.String("cycle", cycle),
						logger.Error(err),
					)
					return
				}
				report.Processed = append(report.Processed, t.ID)
				metrics.RecordSweepOutcome(string(kind), "processed")
			},
		}
		if started && q.Enqueue(ctx, job) {
			continue
		}
		job.Done(s.process(ctx, job))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	metrics.RecordSweepDuration(string(kind), time.Since(start).Seconds())

	mu.Lock()
	defer mu.Unlock()
	out := types.SweepReport{
		Cycle:     report.Cycle,
		Kind:      report.Kind,
		Processed: append([]string{}, report.Processed...),
		Skipped:   append([]string{}, report.Skipped...),
		Failed:    make(map[string]string, len(report.Failed)),
	}
	for k, v := range report.Failed {
		out.Failed[k] = v
	}
	sort.Strings(out.Processed)
	sort.Strings(out.Skipped)

	s.logger.Info(ctx, "sweep finished",
		logger.String("kind", out.Kind),
		logger.String("cycle", out.Cycle),
		logger.Int("processed", len(out.Processed)),
		logger.Int("skipped", len(out.Skipped)),
		logger.Int("failed", len(out.Failed)),
	)
	return out, err
}

// process is the worker pool's processor. It runs the work registered for the
// job under the context of the sweep that queued it.
func (s *Service) process(_ context.Context, j queue.Job) error { //nolint:gocritic // hugeParam
	v, ok := s.inflight.Load(j.ID)
	if !ok {
		return fmt.Errorf("job %s: no sweep registered", j.ID)
	}
	sj := v.(sweepJob)
	if err := sj.ctx.Err(); err != nil {
		return err
	}
	return sj.run(sj.ctx)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
