// Package repository defines the storage contracts of the engine and an
// in-memory implementation of them.
package repository

import (
	"context"
	"time"

	"github.com/okian/driftwatch/internal/domain/model"
)

// TeamDirectory resolves teams and organizations.
type TeamDirectory interface {
	ListTeams(ctx context.Context) ([]model.Team, error)
	// GetTeam returns ErrNotFound for unknown ids.
	GetTeam(ctx context.Context, teamID string) (model.Team, error)
	// TeamsInOrg returns an empty slice for unknown orgs.
	TeamsInOrg(ctx context.Context, orgID string) ([]model.Team, error)
}

// MetricReader reads daily metric rows.
type MetricReader interface {
	// Metrics returns rows for the teams with from <= day <= to, ordered by day.
	Metrics(ctx context.Context, teamIDs []string, from, to time.Time) ([]model.MetricSnapshot, error)
}

// MetricWriter appends daily metric rows. Rows are immutable; writing the
// same (team, day) twice is ErrDuplicate.
type MetricWriter interface {
	PutTeam(ctx context.Context, t model.Team) error
	InsertMetrics(ctx context.Context, rows []model.MetricSnapshot) error
}

// BaselineStore keeps one active baseline per team.
type BaselineStore interface {
	// GetBaseline returns ErrNotFound when the team was never calibrated.
	GetBaseline(ctx context.Context, teamID string) (model.Baseline, error)
	PutBaseline(ctx context.Context, b model.Baseline) error
	// BaselineTeams lists teams that have a baseline.
	BaselineTeams(ctx context.Context) ([]string, error)
}

// DriftEventStore persists drift events.
type DriftEventStore interface {
	DriftEventExists(ctx context.Context, key string) (bool, error)
	// CreateDriftEvent returns ErrDuplicate if an event with the same
	// (team, metric, day) exists.
	CreateDriftEvent(ctx context.Context, e model.DriftEvent) error
	// ListDriftEvents returns events newest first; an empty teamID lists all.
	ListDriftEvents(ctx context.Context, teamID string) ([]model.DriftEvent, error)
	// LatestDriftEvent returns ErrNotFound when the teams have no events.
	LatestDriftEvent(ctx context.Context, teamIDs []string) (model.DriftEvent, error)
	AcknowledgeDriftEvent(ctx context.Context, id string) (model.DriftEvent, error)
}

// CompositeStore keeps composite scores keyed by (scope, period label).
type CompositeStore interface {
	// GetComposite returns ErrNotFound when nothing was stored for the key.
	GetComposite(ctx context.Context, scopeID, periodLabel string) (model.CompositeScore, error)
	UpsertComposite(ctx context.Context, c model.CompositeScore) error
	// ListComposites returns up to limit records for the scope, newest period first.
	ListComposites(ctx context.Context, scopeID string, limit int) ([]model.CompositeScore, error)
}

// HistoryStore keeps each team's snapshot series, newest first.
type HistoryStore interface {
	History(ctx context.Context, teamID string) ([]model.HistorySnapshot, error)
	ReplaceHistory(ctx context.Context, teamID string, entries []model.HistorySnapshot) error
}

// Store is everything the engine needs from persistence.
type Store interface {
	TeamDirectory
	MetricReader
	MetricWriter
	BaselineStore
	DriftEventStore
	CompositeStore
	HistoryStore
	Close() error
}
