// Package history keeps each team's bounded series of score snapshots and
// answers trend and velocity queries over it.
package history

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/internal/domain/types"
	"github.com/okian/driftwatch/pkg/logger"
	"github.com/okian/driftwatch/pkg/metrics"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultRetentionDays = 90
	velocityGroup        = 4
)

// Tracker appends and queries history snapshots. Entries are stored newest
// first by capture time.
type Tracker struct {
	store         repository.HistoryStore
	retentionDays int
	maxEntries    int
	now           func() time.Time
	log           logger.Logger
}

// NewTracker creates a tracker over store.
func NewTracker(store repository.HistoryStore, opts ...Option) *Tracker {
	t := &Tracker{
		store:         store,
		retentionDays: defaultRetentionDays,
		now:           time.Now,
		log:           logger.Get().Named("history"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record inserts snap into the team's series, then drops entries older than
// the retention window and, when capped, all but the newest maxEntries.
// It returns the series as stored.
func (t *Tracker) Record(ctx context.Context, snap model.HistorySnapshot) ([]model.HistorySnapshot, error) {
	entries, err := t.store.History(ctx, snap.TeamID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = t.now().UTC()
	}

	// Insert at the head, then restore capture order for backdated entries.
	entries = append([]model.HistorySnapshot{snap}, entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CapturedAt.After(entries[j].CapturedAt)
	})

	cutoff := t.now().UTC().AddDate(0, 0, -t.retentionDays)
	kept := entries[:0]
	for _, e := range entries {
		if !e.CapturedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	pruned := len(entries) - len(kept)
	if t.maxEntries > 0 && len(kept) > t.maxEntries {
		pruned += len(kept) - t.maxEntries
		kept = kept[:t.maxEntries]
	}

	err = repository.WithRetry(ctx, "replace_history", func(ctx context.Context) error {
		return t.store.ReplaceHistory(ctx, snap.TeamID, kept)
	})
	if err != nil {
		return nil, fmt.Errorf("write history: %w", err)
	}
	if pruned > 0 {
		metrics.RecordHistoryPruned(pruned)
		t.log.Debug(ctx, "history pruned",
			logger.String("team", snap.TeamID),
			logger.Int("pruned", pruned),
			logger.Int("kept", len(kept)),
		)
	}
	return kept, nil
}

// Range returns the team's entries captured within the last days, oldest first.
func (t *Tracker) Range(ctx context.Context, teamID string, days int) ([]model.HistorySnapshot, error) {
	entries, err := t.store.History(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	cutoff := t.now().UTC().AddDate(0, 0, -days)
	out := make([]model.HistorySnapshot, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].CapturedAt.Before(cutoff) {
			out = append(out, entries[i])
		}
	}
	return out, nil
}

// Trend compares the entries closest to, and not after, start and end.
// It returns nil when either boundary has no such entry.
func (t *Tracker) Trend(ctx context.Context, teamID string, start, end time.Time) (*types.TrendResult, error) {
	entries, err := t.store.History(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	from, ok := atOrBefore(entries, start)
	if !ok {
		return nil, nil
	}
	to, ok := atOrBefore(entries, end)
	if !ok {
		return nil, nil
	}

	change := to.Score - from.Score
	den := from.Score
	if den == 0 {
		den = 1
	}
	return &types.TrendResult{
		Start:         from.Score,
		End:           to.Score,
		Change:        round2(change),
		PercentChange: round2(change / den * 100),
		StartDate:     from.CapturedAt,
		EndDate:       to.CapturedAt,
	}, nil
}

// Velocity is the mean of the newest four scores minus the mean of the four
// before them, or nil with fewer than eight entries.
func (t *Tracker) Velocity(ctx context.Context, teamID string) (*float64, error) {
	entries, err := t.store.History(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(entries) < 2*velocityGroup {
		return nil, nil
	}
	scores := make([]float64, 2*velocityGroup)
	for i := range scores {
		scores[i] = entries[i].Score
	}
	v := round2(stat.Mean(scores[:velocityGroup], nil) - stat.Mean(scores[velocityGroup:], nil))
	return &v, nil
}

// atOrBefore finds the latest entry captured no later than at.
func atOrBefore(entries []model.HistorySnapshot, at time.Time) (model.HistorySnapshot, bool) {
	var (
		best  model.HistorySnapshot
		found bool
	)
	for _, e := range entries {
		if e.CapturedAt.After(at) {
			continue
		}
		if !found || e.CapturedAt.After(best.CapturedAt) {
			best, found = e, true
		}
	}
	return best, found
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
