package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/pkg/logger"
)

const insertBatch = 500

// Writer is the part of the store the loader writes to.
type Writer interface {
	PutTeam(ctx context.Context, t model.Team) error
	InsertMetrics(ctx context.Context, rows []model.MetricSnapshot) error
}

// Calibrator sets a team baseline as of a date.
type Calibrator interface {
	SetBaseline(ctx context.Context, teamID string, value *float64, date *time.Time) (model.Baseline, error)
}

// Stats summarizes a load.
type Stats struct {
	Teams      int
	Rows       int
	Calibrated int
	Duration   time.Duration
}

// Load writes ds into w in batches. When c is non-nil every team is
// calibrated as of calibrateAt.
func Load(ctx context.Context, w Writer, c Calibrator, ds Dataset, calibrateAt time.Time) (Stats, error) {
	start := time.Now()
	var stats Stats

	for _, t := range ds.Teams {
		if err := w.PutTeam(ctx, t); err != nil {
			return stats, fmt.Errorf("put team %s: %w", t.ID, err)
		}
		stats.Teams++
	}
	for i := 0; i < len(ds.Rows); i += insertBatch {
		end := min(i+insertBatch, len(ds.Rows))
		if err := w.InsertMetrics(ctx, ds.Rows[i:end]); err != nil {
			return stats, fmt.Errorf("insert rows %d-%d: %w", i, end, err)
		}
		stats.Rows += end - i
	}

	if c != nil {
		for _, t := range ds.Teams {
			if _, err := c.SetBaseline(ctx, t.ID, nil, &calibrateAt); err != nil {
				return stats, fmt.Errorf("calibrate %s: %w", t.ID, err)
			}
			stats.Calibrated++
		}
	}

	stats.Duration = time.Since(start)
	logger.Get().Info(ctx, "seed loaded",
		logger.Int("teams", stats.Teams),
		logger.Int("rows", stats.Rows),
		logger.Int("calibrated", stats.Calibrated),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}
