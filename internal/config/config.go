// Package config defines process configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/driftwatch/internal/domain/drift"
	"github.com/okian/driftwatch/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches the log handler to JSON.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the sqlite database file. Empty keeps everything in memory.
	DBPath string `koanf:"db_path"`

	// WorkerCount sets the number of sweep workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory sweep job queue.
	QueueSize int `koanf:"queue_size"`

	// CheckpointSize bounds how many completed sweep jobs are remembered.
	CheckpointSize int `koanf:"checkpoint_size"`

	WindowDays int `koanf:"window_days"`
	PeriodDays int `koanf:"period_days"`

	// HistoryRetentionDays prunes history entries by age; HistoryMaxEntries,
	// when positive, also caps their number.
	HistoryRetentionDays int `koanf:"history_retention_days"`
	HistoryMaxEntries    int `koanf:"history_max_entries"`

	// SweepIntervalMinutes is how often the batch driver runs. Zero disables it.
	SweepIntervalMinutes int `koanf:"sweep_interval_minutes"`

	PillarWeights map[string]float64 `koanf:"pillar_weights"`
	EnergyWeights map[string]float64 `koanf:"energy_weights"`

	// Thresholds overrides per-metric breach thresholds and polarity.
	Thresholds map[string]drift.Override `koanf:"thresholds"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		WorkerCount:          runtime.NumCPU(),
		QueueSize:            10_000,
		CheckpointSize:       50_000,
		WindowDays:           7,
		PeriodDays:           7,
		HistoryRetentionDays: 90,
		SweepIntervalMinutes: 1440,
		PillarWeights:        scoring.DefaultPillarWeights(),
		EnergyWeights:        scoring.DefaultEnergyWeights(),
		Thresholds:           map[string]drift.Override{},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WindowDays <= 0:
		return fmt.Errorf("%w: window_days must be positive", ErrInvalidConfig)
	case c.PeriodDays <= 0:
		return fmt.Errorf("%w: period_days must be positive", ErrInvalidConfig)
	case c.HistoryRetentionDays <= 0:
		return fmt.Errorf("%w: history_retention_days must be positive", ErrInvalidConfig)
	case c.HistoryMaxEntries < 0:
		return fmt.Errorf("%w: history_max_entries must not be negative", ErrInvalidConfig)
	case c.SweepIntervalMinutes < 0:
		return fmt.Errorf("%w: sweep_interval_minutes must not be negative", ErrInvalidConfig)
	}
	for name, w := range c.PillarWeights {
		if w < 0 {
			return fmt.Errorf("%w: pillar weight %s is negative", ErrInvalidConfig, name)
		}
	}
	for name, w := range c.EnergyWeights {
		if w < 0 {
			return fmt.Errorf("%w: energy weight %s is negative", ErrInvalidConfig, name)
		}
	}
	for metric, o := range c.Thresholds {
		if o.Polarity != "" && !o.Polarity.Valid() {
			return fmt.Errorf("%w: threshold %s: polarity %q is not one of percent, floor, ceiling",
				ErrInvalidConfig, metric, o.Polarity)
		}
		if o.Threshold < 0 {
			return fmt.Errorf("%w: threshold %s is negative", ErrInvalidConfig, metric)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
