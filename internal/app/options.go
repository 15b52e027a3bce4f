package service

import (
	"time"

	"github.com/okian/driftwatch/internal/domain/drift"
	"github.com/okian/driftwatch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of sweep workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the sweep job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCheckpointSize bounds how many completed sweep jobs are remembered.
func WithCheckpointSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.checkpointSize = size
		}
	}
}

// WithWindowDays sets the default detection window.
func WithWindowDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// WithPeriodDays sets the default scoring period.
func WithPeriodDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.periodDays = days
		}
	}
}

// WithHistoryRetention sets the history time window and optional entry cap.
func WithHistoryRetention(days, maxEntries int) Option {
	return func(s *Service) {
		if days > 0 {
			s.retentionDays = days
		}
		if maxEntries >= 0 {
			s.maxEntries = maxEntries
		}
	}
}

// WithThresholds sets configured per-metric threshold overrides.
func WithThresholds(overrides map[string]drift.Override) Option {
	return func(s *Service) {
		s.thresholds = overrides
	}
}

// WithPillarWeights sets the default top-level composite weights.
func WithPillarWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.pillarWeights = weights
	}
}

// WithEnergyWeights sets the energy index weights.
func WithEnergyWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.energyWeights = weights
	}
}

// WithClock sets the time source used for windows, periods and history.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
