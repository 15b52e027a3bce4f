package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/pkg/logger"
)

const (
	dayLayout  = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// metricColumns maps signal keys to columns, in model.AllSignals order.
var metricColumns = []string{
	"meeting_load_index",
	"after_hours_rate",
	"response_latency",
	"sentiment_score",
	"focus_time_ratio",
	"recovery_days",
	"network_breadth",
	"interruption_rate",
	"flow_efficiency",
	"decision_latency",
	"experiment_rate",
	"cross_team_ratio",
	"energy_index",
	"decision_closure_rate",
	"message_count",
	"thread_count",
	"meeting_count",
}

// Store implements repository.Store on sqlite.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

var _ repository.Store = (*Store)(nil)

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(v string) (time.Time, error) { return time.Parse(timeLayout, v) }

func parseDay(v string) (time.Time, error) { return time.Parse(dayLayout, v) }

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func (s *Store) ListTeams(ctx context.Context) ([]model.Team, error) {
	return s.queryTeams(ctx, `SELECT id, org_id, name FROM teams ORDER BY id`)
}

func (s *Store) TeamsInOrg(ctx context.Context, orgID string) ([]model.Team, error) {
	return s.queryTeams(ctx, `SELECT id, org_id, name FROM teams WHERE org_id = ? ORDER BY id`, orgID)
}

func (s *Store) queryTeams(ctx context.Context, q string, args ...any) ([]model.Team, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify("list teams", err)
	}
	defer rows.Close()

	out := make([]model.Team, 0)
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Name); err != nil {
			return nil, classify("scan team", err)
		}
		out = append(out, t)
	}
	return out, classify("list teams", rows.Err())
}

func (s *Store) GetTeam(ctx context.Context, teamID string) (model.Team, error) {
	var t model.Team
	err := s.db.QueryRowContext(ctx, `SELECT id, org_id, name FROM teams WHERE id = ?`, teamID).
		Scan(&t.ID, &t.OrgID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Team{}, fmt.Errorf("team %q: %w", teamID, repository.ErrNotFound)
	}
	return t, classify("get team", err)
}

func (s *Store) PutTeam(ctx context.Context, t model.Team) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, org_id, name) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET org_id = excluded.org_id, name = excluded.name`,
		t.ID, t.OrgID, t.Name)
	return classify("put team", err)
}

func (s *Store) InsertMetrics(ctx context.Context, rows []model.MetricSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin insert metrics", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := fmt.Sprintf(`INSERT INTO metric_snapshots (team_id, org_id, day, %s) VALUES (?, ?, ?, %s)`,
		strings.Join(metricColumns, ", "), placeholders(len(metricColumns)))
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return classify("prepare insert metrics", err)
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		args := make([]any, 0, 3+len(metricColumns))
		args = append(args, r.TeamID, r.OrgID, model.DayKey(r.Day))
		for _, sig := range model.AllSignals {
			if v := r.Value(sig); v != nil {
				args = append(args, *v)
			} else {
				args = append(args, nil)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return classify("insert metrics "+r.TeamID+"/"+model.DayKey(r.Day), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teams (id, org_id, name) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
			r.TeamID, r.OrgID, r.TeamID); err != nil {
			return classify("register team", err)
		}
	}
	return classify("commit insert metrics", tx.Commit())
}

func (s *Store) Metrics(ctx context.Context, teamIDs []string, from, to time.Time) ([]model.MetricSnapshot, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT team_id, org_id, day, %s FROM metric_snapshots
		WHERE team_id IN (%s) AND day >= ? AND day <= ? ORDER BY day, team_id`,
		strings.Join(metricColumns, ", "), placeholders(len(teamIDs)))
	args := make([]any, 0, len(teamIDs)+2)
	for _, id := range teamIDs {
		args = append(args, id)
	}
	args = append(args, model.DayKey(from), model.DayKey(to))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify("read metrics", err)
	}
	defer rows.Close()

	var out []model.MetricSnapshot
	vals := make([]sql.NullFloat64, len(metricColumns))
	for rows.Next() {
		var (
			r   model.MetricSnapshot
			day string
		)
		dest := []any{&r.TeamID, &r.OrgID, &day}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, classify("scan metrics", err)
		}
		if r.Day, err = parseDay(day); err != nil {
			return nil, fmt.Errorf("parse day %q: %w", day, err)
		}
		for i, sig := range model.AllSignals {
			if vals[i].Valid {
				r.Set(sig, model.Float(vals[i].Float64))
			}
		}
		out = append(out, r)
	}
	return out, classify("read metrics", rows.Err())
}

func (s *Store) GetBaseline(ctx context.Context, teamID string) (model.Baseline, error) {
	var (
		b                model.Baseline
		signals, capture string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT team_id, value, signals, captured_at FROM baselines WHERE team_id = ?`, teamID).
		Scan(&b.TeamID, &b.Value, &signals, &capture)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Baseline{}, fmt.Errorf("baseline %q: %w", teamID, repository.ErrNotFound)
	}
	if err != nil {
		return model.Baseline{}, classify("get baseline", err)
	}
	if err := json.Unmarshal([]byte(signals), &b.Signals); err != nil {
		return model.Baseline{}, fmt.Errorf("decode baseline signals: %w", err)
	}
	if b.CapturedAt, err = parseTime(capture); err != nil {
		return model.Baseline{}, fmt.Errorf("parse baseline date: %w", err)
	}
	return b, nil
}

func (s *Store) PutBaseline(ctx context.Context, b model.Baseline) error {
	signals, err := json.Marshal(b.Signals)
	if err != nil {
		return fmt.Errorf("encode baseline signals: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO baselines (team_id, value, signals, captured_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(team_id) DO UPDATE SET value = excluded.value, signals = excluded.signals,
		 captured_at = excluded.captured_at`,
		b.TeamID, b.Value, string(signals), formatTime(b.CapturedAt))
	return classify("put baseline", err)
}

func (s *Store) BaselineTeams(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT team_id FROM baselines ORDER BY team_id`)
	if err != nil {
		return nil, classify("list baselines", err)
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, classify("scan baseline team", err)
		}
		out = append(out, id)
	}
	return out, classify("list baselines", rows.Err())
}

func (s *Store) DriftEventExists(ctx context.Context, key string) (bool, error) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return false, fmt.Errorf("malformed drift key %q", key)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM drift_events WHERE team_id = ? AND metric = ? AND day = ?`,
		parts[0], parts[1], parts[2]).Scan(&n)
	return n > 0, classify("drift event exists", err)
}

func (s *Store) CreateDriftEvent(ctx context.Context, e model.DriftEvent) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("encode drift details: %w", err)
	}
	drivers, err := json.Marshal(e.Drivers)
	if err != nil {
		return fmt.Errorf("encode drift drivers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drift_events (id, team_id, org_id, metric, day, direction, magnitude, basis,
		 details, drivers, recommendation, acknowledged) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TeamID, e.OrgID, e.Metric, model.DayKey(e.Day), string(e.Direction), e.Magnitude,
		string(e.Basis), string(details), string(drivers), e.Recommendation, e.Acknowledged)
	return classify("create drift event "+e.Key(), err)
}

const driftColumns = `id, team_id, org_id, metric, day, direction, magnitude, basis, details, drivers,
	recommendation, acknowledged`

func scanDrift(sc interface{ Scan(dest ...any) error }) (model.DriftEvent, error) {
	var (
		e                             model.DriftEvent
		day, dir, basis, det, drivers string
	)
	err := sc.Scan(&e.ID, &e.TeamID, &e.OrgID, &e.Metric, &day, &dir, &e.Magnitude, &basis,
		&det, &drivers, &e.Recommendation, &e.Acknowledged)
	if err != nil {
		return e, err
	}
	e.Direction, e.Basis = model.Direction(dir), model.Basis(basis)
	if e.Day, err = parseDay(day); err != nil {
		return e, fmt.Errorf("parse drift day: %w", err)
	}
	if err := json.Unmarshal([]byte(det), &e.Details); err != nil {
		return e, fmt.Errorf("decode drift details: %w", err)
	}
	if err := json.Unmarshal([]byte(drivers), &e.Drivers); err != nil {
		return e, fmt.Errorf("decode drift drivers: %w", err)
	}
	return e, nil
}

func (s *Store) queryDrift(ctx context.Context, q string, args ...any) ([]model.DriftEvent, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify("list drift events", err)
	}
	defer rows.Close()
	out := make([]model.DriftEvent, 0)
	for rows.Next() {
		e, err := scanDrift(rows)
		if err != nil {
			return nil, classify("scan drift event", err)
		}
		out = append(out, e)
	}
	return out, classify("list drift events", rows.Err())
}

func (s *Store) ListDriftEvents(ctx context.Context, teamID string) ([]model.DriftEvent, error) {
	if teamID == "" {
		return s.queryDrift(ctx, `SELECT `+driftColumns+` FROM drift_events ORDER BY day DESC, seq DESC`)
	}
	return s.queryDrift(ctx, `SELECT `+driftColumns+` FROM drift_events WHERE team_id = ?
		ORDER BY day DESC, seq DESC`, teamID)
}

func (s *Store) LatestDriftEvent(ctx context.Context, teamIDs []string) (model.DriftEvent, error) {
	if len(teamIDs) == 0 {
		return model.DriftEvent{}, fmt.Errorf("latest drift event: %w", repository.ErrNotFound)
	}
	args := make([]any, len(teamIDs))
	for i, id := range teamIDs {
		args[i] = id
	}
	events, err := s.queryDrift(ctx, `SELECT `+driftColumns+` FROM drift_events
		WHERE team_id IN (`+placeholders(len(teamIDs))+`) ORDER BY day DESC, seq DESC LIMIT 1`, args...)
	if err != nil {
		return model.DriftEvent{}, err
	}
	if len(events) == 0 {
		return model.DriftEvent{}, fmt.Errorf("latest drift event: %w", repository.ErrNotFound)
	}
	return events[0], nil
}

func (s *Store) AcknowledgeDriftEvent(ctx context.Context, id string) (model.DriftEvent, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE drift_events SET acknowledged = 1 WHERE id = ?`, id)
	if err != nil {
		return model.DriftEvent{}, classify("acknowledge drift event", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.DriftEvent{}, fmt.Errorf("drift event %q: %w", id, repository.ErrNotFound)
	}
	e, err := scanDrift(s.db.QueryRowContext(ctx, `SELECT `+driftColumns+` FROM drift_events WHERE id = ?`, id))
	return e, classify("read drift event", err)
}

func (s *Store) GetComposite(ctx context.Context, scopeID, periodLabel string) (model.CompositeScore, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM composite_scores WHERE scope_id = ? AND period_label = ?`, scopeID, periodLabel).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CompositeScore{}, fmt.Errorf("composite %s/%s: %w", scopeID, periodLabel, repository.ErrNotFound)
	}
	if err != nil {
		return model.CompositeScore{}, classify("get composite", err)
	}
	var c model.CompositeScore
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return model.CompositeScore{}, fmt.Errorf("decode composite: %w", err)
	}
	return c, nil
}

func (s *Store) UpsertComposite(ctx context.Context, c model.CompositeScore) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode composite: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO composite_scores (scope_id, period_label, period_end, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope_id, period_label) DO UPDATE SET period_end = excluded.period_end,
		 payload = excluded.payload`,
		c.ScopeID, c.PeriodLabel, formatTime(c.PeriodEnd), string(payload))
	return classify("upsert composite "+c.ScopeID+"/"+c.PeriodLabel, err)
}

func (s *Store) ListComposites(ctx context.Context, scopeID string, limit int) ([]model.CompositeScore, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM composite_scores WHERE scope_id = ? ORDER BY period_end DESC LIMIT ?`, scopeID, limit)
	if err != nil {
		return nil, classify("list composites", err)
	}
	defer rows.Close()
	out := make([]model.CompositeScore, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, classify("scan composite", err)
		}
		var c model.CompositeScore
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("decode composite: %w", err)
		}
		out = append(out, c)
	}
	return out, classify("list composites", rows.Err())
}

func (s *Store) History(ctx context.Context, teamID string) ([]model.HistorySnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT score, signals, captured_at FROM history_snapshots WHERE team_id = ? ORDER BY position`, teamID)
	if err != nil {
		return nil, classify("read history", err)
	}
	defer rows.Close()
	out := make([]model.HistorySnapshot, 0)
	for rows.Next() {
		h := model.HistorySnapshot{TeamID: teamID}
		var signals, captured string
		if err := rows.Scan(&h.Score, &signals, &captured); err != nil {
			return nil, classify("scan history", err)
		}
		if err := json.Unmarshal([]byte(signals), &h.Signals); err != nil {
			return nil, fmt.Errorf("decode history signals: %w", err)
		}
		if h.CapturedAt, err = parseTime(captured); err != nil {
			return nil, fmt.Errorf("parse history time: %w", err)
		}
		out = append(out, h)
	}
	return out, classify("read history", rows.Err())
}

func (s *Store) ReplaceHistory(ctx context.Context, teamID string, entries []model.HistorySnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin replace history", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history_snapshots WHERE team_id = ?`, teamID); err != nil {
		return classify("clear history", err)
	}
	for i, h := range entries {
		signals, err := json.Marshal(h.Signals)
		if err != nil {
			return fmt.Errorf("encode history signals: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history_snapshots (team_id, position, score, signals, captured_at) VALUES (?, ?, ?, ?, ?)`,
			teamID, i, h.Score, string(signals), formatTime(h.CapturedAt)); err != nil {
			return classify("insert history", err)
		}
	}
	return classify("commit replace history", tx.Commit())
}
