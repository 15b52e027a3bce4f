package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/driftwatch/internal/domain/model"
)

// MemStore is an in-memory Store. It is the default store and the one the
// tests run against.
type MemStore struct {
	mu sync.RWMutex

	teams      map[string]model.Team
	metrics    map[string]map[string]model.MetricSnapshot // team -> day key -> row
	baselines  map[string]model.Baseline
	drift      map[string]driftRecord // key -> record
	driftByID  map[string]string      // id -> key
	composites map[string]model.CompositeScore
	history    map[string][]model.HistorySnapshot
	seq        int64
}

type driftRecord struct {
	event model.DriftEvent
	seq   int64
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		teams:      make(map[string]model.Team),
		metrics:    make(map[string]map[string]model.MetricSnapshot),
		baselines:  make(map[string]model.Baseline),
		drift:      make(map[string]driftRecord),
		driftByID:  make(map[string]string),
		composites: make(map[string]model.CompositeScore),
		history:    make(map[string][]model.HistorySnapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) ListTeams(context.Context) ([]model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) GetTeam(_ context.Context, teamID string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[teamID]
	if !ok {
		return model.Team{}, fmt.Errorf("team %q: %w", teamID, ErrNotFound)
	}
	return t, nil
}

func (s *MemStore) TeamsInOrg(ctx context.Context, orgID string) ([]model.Team, error) {
	all, _ := s.ListTeams(ctx)
	out := make([]model.Team, 0)
	for _, t := range all {
		if t.OrgID == orgID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemStore) PutTeam(_ context.Context, t model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[t.ID] = t
	return nil
}

func (s *MemStore) InsertMetrics(_ context.Context, rows []model.MetricSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The batch is all-or-nothing.
	batch := make(map[string]struct{}, len(rows))
	for i := range rows {
		k := rows[i].TeamID + "|" + model.DayKey(rows[i].Day)
		_, inBatch := batch[k]
		_, stored := s.metrics[rows[i].TeamID][model.DayKey(rows[i].Day)]
		if inBatch || stored {
			return fmt.Errorf("metrics %s: %w", k, ErrDuplicate)
		}
		batch[k] = struct{}{}
	}

	for i := range rows {
		r := rows[i]
		r.Day = model.Day(r.Day)
		days := s.metrics[r.TeamID]
		if days == nil {
			days = make(map[string]model.MetricSnapshot)
			s.metrics[r.TeamID] = days
		}
		days[model.DayKey(r.Day)] = r
		if _, ok := s.teams[r.TeamID]; !ok {
			s.teams[r.TeamID] = model.Team{ID: r.TeamID, OrgID: r.OrgID, Name: r.TeamID}
		}
	}
	return nil
}

func (s *MemStore) Metrics(_ context.Context, teamIDs []string, from, to time.Time) ([]model.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, to = model.Day(from), model.Day(to)
	var out []model.MetricSnapshot
	for _, id := range teamIDs {
		for _, r := range s.metrics[id] {
			if r.Day.Before(from) || r.Day.After(to) {
				continue
			}
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out, nil
}

func (s *MemStore) GetBaseline(_ context.Context, teamID string) (model.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.baselines[teamID]
	if !ok {
		return model.Baseline{}, fmt.Errorf("baseline %q: %w", teamID, ErrNotFound)
	}
	b.Signals = maps.Clone(b.Signals)
	return b, nil
}

func (s *MemStore) PutBaseline(_ context.Context, b model.Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Signals = maps.Clone(b.Signals)
	s.baselines[b.TeamID] = b
	return nil
}

func (s *MemStore) BaselineTeams(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.baselines))
	for id := range s.baselines {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) DriftEventExists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.drift[key]
	return ok, nil
}

func (s *MemStore) CreateDriftEvent(_ context.Context, e model.DriftEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := e.Key()
	if _, ok := s.drift[k]; ok {
		return fmt.Errorf("drift event %s: %w", k, ErrDuplicate)
	}
	s.seq++
	e.Drivers = append([]model.Driver(nil), e.Drivers...)
	s.drift[k] = driftRecord{event: e, seq: s.seq}
	s.driftByID[e.ID] = k
	return nil
}

func (s *MemStore) sortedDrift(match func(model.DriftEvent) bool) []model.DriftEvent {
	recs := make([]driftRecord, 0)
	for _, r := range s.drift {
		if match(r.event) {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].event.Day.Equal(recs[j].event.Day) {
			return recs[i].event.Day.After(recs[j].event.Day)
		}
		return recs[i].seq > recs[j].seq
	})
	out := make([]model.DriftEvent, len(recs))
	for i, r := range recs {
		out[i] = r.event
	}
	return out
}

func (s *MemStore) ListDriftEvents(_ context.Context, teamID string) ([]model.DriftEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDrift(func(e model.DriftEvent) bool {
		return teamID == "" || e.TeamID == teamID
	}), nil
}

func (s *MemStore) LatestDriftEvent(_ context.Context, teamIDs []string) (model.DriftEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		want[id] = struct{}{}
	}
	events := s.sortedDrift(func(e model.DriftEvent) bool {
		_, ok := want[e.TeamID]
		return ok
	})
	if len(events) == 0 {
		return model.DriftEvent{}, fmt.Errorf("latest drift event: %w", ErrNotFound)
	}
	return events[0], nil
}

func (s *MemStore) AcknowledgeDriftEvent(_ context.Context, id string) (model.DriftEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.driftByID[id]
	if !ok {
		return model.DriftEvent{}, fmt.Errorf("drift event %q: %w", id, ErrNotFound)
	}
	r := s.drift[k]
	r.event.Acknowledged = true
	s.drift[k] = r
	return r.event, nil
}

func compositeKey(scopeID, periodLabel string) string { return scopeID + "|" + periodLabel }

func (s *MemStore) GetComposite(_ context.Context, scopeID, periodLabel string) (model.CompositeScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.composites[compositeKey(scopeID, periodLabel)]
	if !ok {
		return model.CompositeScore{}, fmt.Errorf("composite %s/%s: %w", scopeID, periodLabel, ErrNotFound)
	}
	return cloneComposite(c), nil
}

func (s *MemStore) UpsertComposite(_ context.Context, c model.CompositeScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.composites[compositeKey(c.ScopeID, c.PeriodLabel)] = cloneComposite(c)
	return nil
}

func (s *MemStore) ListComposites(_ context.Context, scopeID string, limit int) ([]model.CompositeScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CompositeScore, 0)
	for _, c := range s.composites {
		if c.ScopeID == scopeID {
			out = append(out, cloneComposite(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodEnd.After(out[j].PeriodEnd) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) History(_ context.Context, teamID string) ([]model.HistorySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneHistory(s.history[teamID]), nil
}

func (s *MemStore) ReplaceHistory(_ context.Context, teamID string, entries []model.HistorySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[teamID] = cloneHistory(entries)
	return nil
}

func cloneHistory(in []model.HistorySnapshot) []model.HistorySnapshot {
	out := make([]model.HistorySnapshot, len(in))
	for i, h := range in {
		h.Signals = maps.Clone(h.Signals)
		out[i] = h
	}
	return out
}

// cloneComposite deep-copies every map, slice and pointer of c.
func cloneComposite(c model.CompositeScore) model.CompositeScore {
	c.PreviousScore = clonePtr(c.PreviousScore)
	c.DecisionClosure = clonePtr(c.DecisionClosure)
	c.Weights = maps.Clone(c.Weights)
	if c.Pillars != nil {
		pillars := make(map[string]model.PillarScore, len(c.Pillars))
		for name, p := range c.Pillars {
			if p.Components != nil {
				comps := make(map[string]*float64, len(p.Components))
				for k, v := range p.Components {
					comps[k] = clonePtr(v)
				}
				p.Components = comps
			}
			pillars[name] = p
		}
		c.Pillars = pillars
	}
	c.Energy.TopContributors = slices.Clone(c.Energy.TopContributors)
	if d := c.Energy.LatestDrift; d != nil {
		cp := *d
		cp.Drivers = slices.Clone(d.Drivers)
		c.Energy.LatestDrift = &cp
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
