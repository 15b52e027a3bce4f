// Package window computes statistics over a trailing window of daily metric rows.
package window

import (
	"time"

	"github.com/okian/driftwatch/internal/domain/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const day = 24 * time.Hour

// Bounds returns the inclusive [from, to] day range of a window of days ending
// on asOf's calendar day.
func Bounds(asOf time.Time, days int) (from, to time.Time) {
	if days < 1 {
		days = 1
	}
	to = model.Day(asOf)
	from = to.Add(-time.Duration(days-1) * day)
	return from, to
}

// Values collects the non-nil values of a signal.
func Values(rows []model.MetricSnapshot, signal string) []float64 {
	out := make([]float64, 0, len(rows))
	for i := range rows {
		if v := rows[i].Value(signal); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Stats returns the mean and population standard deviation of a signal over the
// non-nil values, and how many values there were.
func Stats(rows []model.MetricSnapshot, signal string) (mean, std float64, n int) {
	vals := Values(rows, signal)
	if len(vals) == 0 {
		return 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(vals, nil)
	return mean, std, len(vals)
}

// Averages returns a snapshot whose fields hold the window mean of each signal,
// nil where the window has no values.
func Averages(rows []model.MetricSnapshot) model.MetricSnapshot {
	var out model.MetricSnapshot
	for _, s := range model.AllSignals {
		if vals := Values(rows, s); len(vals) > 0 {
			out.Set(s, model.Float(stat.Mean(vals, nil)))
		}
	}
	if len(rows) > 0 {
		out.TeamID = rows[0].TeamID
		out.OrgID = rows[0].OrgID
		out.Day = rows[len(rows)-1].Day
	}
	return out
}

// Totals returns a snapshot whose fields hold the window sum of each signal.
func Totals(rows []model.MetricSnapshot) model.MetricSnapshot {
	var out model.MetricSnapshot
	for _, s := range model.AllSignals {
		if vals := Values(rows, s); len(vals) > 0 {
			out.Set(s, model.Float(floats.Sum(vals)))
		}
	}
	return out
}

// SignalMap flattens the present fields of a snapshot into a signal map.
func SignalMap(avg *model.MetricSnapshot) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range model.AllSignals {
		if v := avg.Value(s); v != nil {
			out[s] = *v
		}
	}
	return out
}

// FromSignalMap builds a snapshot from a signal map, ignoring unknown keys.
func FromSignalMap(signals map[string]float64) model.MetricSnapshot {
	var out model.MetricSnapshot
	for k, v := range signals {
		out.Set(k, model.Float(v))
	}
	return out
}
