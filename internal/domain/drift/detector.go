package drift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/dedupe"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/internal/domain/window"
	"github.com/okian/driftwatch/pkg/logger"
	"github.com/okian/driftwatch/pkg/metrics"
)

const (
	defaultWindowDays = 7
	maxDrivers        = 3
)

// eventNamespace seeds deterministic drift event ids.
var eventNamespace = uuid.MustParse("6f1d2b8e-3c47-4f0a-9a51-2e7d8c4b9f10")

// EventID derives the id of the drift event for a (team, metric, day) key.
func EventID(key string) string {
	return uuid.NewSHA1(eventNamespace, []byte(key)).String()
}

// Source provides the detector's inputs.
type Source interface {
	GetBaseline(ctx context.Context, teamID string) (model.Baseline, error)
	Metrics(ctx context.Context, teamIDs []string, from, to time.Time) ([]model.MetricSnapshot, error)
}

// Sink persists drift events.
type Sink interface {
	DriftEventExists(ctx context.Context, key string) (bool, error)
	CreateDriftEvent(ctx context.Context, e model.DriftEvent) error
}

// Recommender maps a metric moving in a direction to an action.
type Recommender interface {
	Recommend(metric string, dir model.Direction) string
}

// Options parameterize one detection pass.
type Options struct {
	WindowDays int
	Overrides  map[string]Override
	AsOf       time.Time
}

// Result describes one team's detection pass.
type Result struct {
	TeamID        string
	Skipped       bool // no baseline or no rows in the window
	Contributions []Contribution
	Created       []model.DriftEvent
	Duplicates    int
}

// Detector runs the per-team detection pass.
type Detector struct {
	src         Source
	sink        Sink
	rules       []Rule
	recommender Recommender
	seen        dedupe.Deduper
	log         logger.Logger
}

// NewDetector creates a detector reading from src and writing to sink.
func NewDetector(src Source, sink Sink, opts ...Option) *Detector {
	d := &Detector{
		src:   src,
		sink:  sink,
		rules: DefaultRules(),
		seen:  dedupe.NewInMemoryDeduper(),
		log:   logger.Get().Named("drift"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Rules returns the detector's base rules before per-call overrides.
func (d *Detector) Rules() []Rule {
	return append([]Rule(nil), d.rules...)
}

// DetectTeam evaluates one team's window against its baseline and records a
// drift event for every breached metric. Teams without a baseline or without
// rows in the window are skipped without error. A failure to persist one
// metric's event does not stop the others; all failures are returned joined.
func (d *Detector) DetectTeam(ctx context.Context, team model.Team, opts Options) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDetectionLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	res := Result{TeamID: team.ID}
	if opts.WindowDays <= 0 {
		opts.WindowDays = defaultWindowDays
	}
	if opts.AsOf.IsZero() {
		opts.AsOf = time.Now()
	}

	baseline, err := d.src.GetBaseline(ctx, team.ID)
	if errors.Is(err, repository.ErrNotFound) {
		res.Skipped = true
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("team %s: read baseline: %w", team.ID, err)
	}

	from, to := window.Bounds(opts.AsOf, opts.WindowDays)
	rows, err := d.src.Metrics(ctx, []string{team.ID}, from, to)
	if err != nil {
		return res, fmt.Errorf("team %s: read metrics: %w", team.ID, err)
	}
	if len(rows) == 0 {
		res.Skipped = true
		return res, nil
	}

	rules := MergeRules(d.rules, opts.Overrides)
	res.Contributions = Evaluate(baseline.Signals, rows, rules)
	drivers := RankDrivers(res.Contributions, maxDrivers)
	day := model.Day(opts.AsOf)

	var errs []error
	for _, c := range res.Contributions {
		if !c.Breach {
			continue
		}
		e := d.newEvent(team, day, c, drivers)
		created, err := d.record(ctx, e)
		if err != nil {
			d.log.Error(ctx, "drift event not recorded",
				logger.String("team", team.ID),
				logger.String("metric", e.Metric),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("team %s metric %s: %w", team.ID, e.Metric, err))
			continue
		}
		if !created {
			res.Duplicates++
			continue
		}
		res.Created = append(res.Created, e)
	}
	return res, errors.Join(errs...)
}

func (d *Detector) newEvent(team model.Team, day time.Time, c Contribution, drivers []model.Driver) model.DriftEvent {
	dir := DirectionOf(c.PercentChange)
	e := model.DriftEvent{
		TeamID:    team.ID,
		OrgID:     team.OrgID,
		Metric:    c.Rule.Metric,
		Direction: dir,
		Magnitude: abs(c.PercentChange),
		Basis:     model.BasisPercent,
		Details: model.DriftDetails{
			WindowAverage: round2(c.WindowAverage),
			BaselineValue: c.Baseline,
			PercentChange: c.PercentChange,
			ZScore:        c.ZScore,
			Threshold:     c.Rule.Threshold,
			Polarity:      string(c.Rule.Polarity),
			SampleCount:   c.Samples,
		},
		Drivers: append([]model.Driver(nil), drivers...),
		Day:     day,
	}
	if d.recommender != nil {
		e.Recommendation = d.recommender.Recommend(e.Metric, dir)
	}
	e.ID = EventID(e.Key())
	return e
}

// record creates e unless an event for its key already exists. It reports
// whether a new event was written.
func (d *Detector) record(ctx context.Context, e model.DriftEvent) (bool, error) {
	key := e.Key()
	if d.seen.Seen(ctx, key) {
		metrics.RecordDriftDuplicate()
		return false, nil
	}
	exists, err := d.sink.DriftEventExists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check existing: %w", err)
	}
	if exists {
		d.seen.SeenAndRecord(ctx, key)
		metrics.RecordDriftDuplicate()
		return false, nil
	}

	err = repository.WithRetry(ctx, "create_drift_event", func(ctx context.Context) error {
		return d.sink.CreateDriftEvent(ctx, e)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		d.seen.SeenAndRecord(ctx, key)
		metrics.RecordDriftDuplicate()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	d.seen.SeenAndRecord(ctx, key)
	metrics.RecordDriftEvent(e.Metric, string(e.Direction))
	d.log.Info(ctx, "drift detected",
		logger.String("team", e.TeamID),
		logger.String("metric", e.Metric),
		logger.String("direction", string(e.Direction)),
		logger.Float64("magnitude", e.Magnitude),
	)
	return true, nil
}
