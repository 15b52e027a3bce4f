// Package scoring normalizes component signals and aggregates them into the
// composite indices: the four-pillar rating and the energy index.
package scoring

import (
	"math"

	"github.com/okian/driftwatch/internal/domain/model"
)

// Scoring constants.
const (
	minScore     = 0
	maxScore     = 100
	neutralScore = 50

	// trendBand is the hysteresis band, in points, inside which a change is
	// classified as stable.
	trendBand = 2

	zoneAtRiskFloor   = 35
	zoneStableFloor   = 55
	zoneThrivingFloor = 75
)

// Component is one optional input to a weighted average.
type Component struct {
	Name   string
	Value  *float64
	Weight float64
}

// Normalize clamps value to [lo, hi], scales it to [0,1], optionally inverts it
// and returns the rounded 0..100 score.
func Normalize(value, lo, hi float64, inverse bool) int {
	if hi <= lo {
		return neutralScore
	}
	x := (math.Max(lo, math.Min(hi, value)) - lo) / (hi - lo)
	if inverse {
		x = 1 - x
	}
	return int(math.Round(x * maxScore))
}

// WeightedAverage averages the present components, renormalizing weights over
// them only. With nothing present it returns the neutral score.
func WeightedAverage(components []Component) float64 {
	var sum, weights float64
	for _, c := range components {
		if c.Value == nil || c.Weight <= 0 {
			continue
		}
		sum += *c.Value * c.Weight
		weights += c.Weight
	}
	if weights == 0 {
		return neutralScore
	}
	return sum / weights
}

// Clamp bounds s to [0, 100].
func Clamp(s float64) float64 {
	return math.Max(minScore, math.Min(maxScore, s))
}

// ClampRound bounds s to [0, 100] and rounds it.
func ClampRound(s float64) int {
	return int(math.Round(Clamp(s)))
}

// ClassifyZone buckets an overall score.
func ClassifyZone(score int) model.Zone {
	switch {
	case score < zoneAtRiskFloor:
		return model.ZoneCritical
	case score < zoneStableFloor:
		return model.ZoneAtRisk
	case score < zoneThrivingFloor:
		return model.ZoneStable
	default:
		return model.ZoneThriving
	}
}

// ClassifyTrend applies the hysteresis band to a score delta.
func ClassifyTrend(delta float64) model.Trend {
	switch {
	case delta > trendBand:
		return model.TrendUp
	case delta < -trendBand:
		return model.TrendDown
	default:
		return model.TrendStable
	}
}

// CompareToPrevious returns the trend and rounded percent change of current
// against previous. A missing or zero previous yields stable and 0%.
func CompareToPrevious(current float64, previous *float64) (model.Trend, int) {
	if previous == nil {
		return model.TrendStable, 0
	}
	delta := current - *previous
	trend := ClassifyTrend(delta)
	if *previous == 0 {
		return trend, 0
	}
	return trend, int(math.Round(delta / *previous * maxScore))
}
