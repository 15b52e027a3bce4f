// Package service wires the analytics components into the engine used by the
// HTTP API and the batch driver.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/driftwatch/internal/adapters/mq/queue"
	"github.com/okian/driftwatch/internal/adapters/mq/worker"
	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/baseline"
	"github.com/okian/driftwatch/internal/domain/dedupe"
	"github.com/okian/driftwatch/internal/domain/drift"
	"github.com/okian/driftwatch/internal/domain/history"
	"github.com/okian/driftwatch/internal/domain/playbook"
	"github.com/okian/driftwatch/internal/domain/scoring"
	"github.com/okian/driftwatch/pkg/logger"
	"github.com/okian/driftwatch/pkg/metrics"
)

// Service is the analytics engine. All methods are safe for concurrent use.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	calculator *scoring.Calculator
	detector   *drift.Detector
	baselines  *baseline.Manager
	tracker    *history.Tracker
	playbook   *playbook.Static
	checkpoint dedupe.Deduper

	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	inflight sync.Map // job id -> sweepJob

	// Configuration
	workerCount    int
	queueSize      int
	checkpointSize int
	windowDays     int
	periodDays     int
	retentionDays  int
	maxEntries     int
	thresholds     map[string]drift.Override
	pillarWeights  map[string]float64
	energyWeights  map[string]float64

	started bool
	now     func() time.Time
	logger  logger.Logger
}

// New creates an engine over store. Components are built after the options
// are applied; Start is only needed for sweeps to use the worker pool.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		workerCount:    runtime.NumCPU(),
		queueSize:      10000,
		checkpointSize: 50000,
		windowDays:     7,
		periodDays:     7,
		retentionDays:  90,
		now:            time.Now,
		logger:         logger.Get().Named("engine"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.playbook = playbook.Default()
	s.calculator = scoring.NewCalculator(
		scoring.WithPillarWeights(s.pillarWeights),
		scoring.WithEnergyWeights(s.energyWeights),
		scoring.WithRecommender(s.playbook),
	)
	s.detector = drift.NewDetector(store, store,
		drift.WithRecommender(s.playbook),
		drift.WithOverrides(s.thresholds),
		drift.WithLogger(s.logger.Named("drift")),
	)
	s.baselines = baseline.NewManager(store, baseline.ScorerFunc(s.currentScore),
		baseline.WithWindowDays(s.windowDays),
		baseline.WithClock(s.now),
		baseline.WithLogger(s.logger.Named("baseline")),
	)
	s.tracker = history.NewTracker(store,
		history.WithRetentionDays(s.retentionDays),
		history.WithMaxEntries(s.maxEntries),
		history.WithClock(s.now),
		history.WithLogger(s.logger.Named("history")),
	)
	s.checkpoint = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.checkpointSize))
	return s
}

// Start starts the worker pool that sweeps fan out to.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.ProcessorFunc(s.process))
	s.pool.Start(ctx)
	s.started = true

	s.logger.Info(ctx, "engine started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("checkpointSize", s.checkpointSize),
	)
	return nil
}

// Stop drains the queue and waits for the workers. The store is left open.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	err := s.pool.Shutdown(ctx)
	s.logger.Info(ctx, "engine stopped")
	return err
}

// GetStats returns engine statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"checkpointSize":    s.checkpointSize,
		"checkpointEntries": s.checkpoint.Size(),
		"windowDays":        s.windowDays,
		"periodDays":        s.periodDays,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
	}
	if teams, err := s.store.ListTeams(ctx); err == nil {
		stats["teams"] = len(teams)
		metrics.UpdateTeamsTracked(len(teams))
	}
	if calibrated, err := s.store.BaselineTeams(ctx); err == nil {
		stats["calibratedTeams"] = len(calibrated)
	}
	return stats
}

// resolveScope returns the teams a scope id covers: the team itself, or every
// team of an organization.
func (s *Service) resolveScope(ctx context.Context, scopeID string) ([]string, error) {
	team, err := s.store.GetTeam(ctx, scopeID)
	if err == nil {
		return []string{team.ID}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("resolve scope %s: %w", scopeID, err)
	}
	teams, err := s.store.TeamsInOrg(ctx, scopeID)
	if err != nil {
		return nil, fmt.Errorf("resolve scope %s: %w", scopeID, err)
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("%s: %w", scopeID, ErrScopeNotFound)
	}
	ids := make([]string, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return ids, nil
}
