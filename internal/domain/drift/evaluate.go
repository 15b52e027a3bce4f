// Package drift detects statistically meaningful deviation of a team's recent
// metric window from its calibrated baseline.
package drift

import (
	"math"
	"sort"

	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/internal/domain/window"
)

// Contribution is one metric's comparison against baseline. Every evaluated
// metric produces one, breached or not, so explanations can rank them.
type Contribution struct {
	Rule          Rule
	WindowAverage float64
	StdDev        float64
	Baseline      float64
	PercentChange float64
	ZScore        float64
	Samples       int
	Breach        bool
}

// Evaluate compares the window rows against baseline signals for every rule.
// Rules whose signal is missing from the baseline, or has no values in the
// window, are skipped.
func Evaluate(baseline map[string]float64, rows []model.MetricSnapshot, rules []Rule) []Contribution {
	out := make([]Contribution, 0, len(rules))
	for _, r := range rules {
		base, ok := baseline[r.Signal]
		if !ok {
			continue
		}
		avg, std, n := window.Stats(rows, r.Signal)
		if n == 0 {
			continue
		}
		pct := round2(PercentChange(avg, base))
		z := 0.0
		if std != 0 {
			z = round2((avg - base) / std)
		}
		out = append(out, Contribution{
			Rule:          r,
			WindowAverage: avg,
			StdDev:        std,
			Baseline:      base,
			PercentChange: pct,
			ZScore:        z,
			Samples:       n,
			Breach:        r.Breached(avg, pct),
		})
	}
	return out
}

// PercentChange is (avg-baseline)/baseline*100, dividing by 1 when the
// baseline is zero.
func PercentChange(avg, baseline float64) float64 {
	den := baseline
	if den == 0 {
		den = 1
	}
	return (avg - baseline) / den * 100
}

// RankDrivers orders contributions by absolute percent change, largest first,
// and returns at most n of them with their signed change. Ties keep input order.
func RankDrivers(contribs []Contribution, n int) []model.Driver {
	sorted := append([]Contribution(nil), contribs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].PercentChange) > math.Abs(sorted[j].PercentChange)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]model.Driver, len(sorted))
	for i, c := range sorted {
		out[i] = model.Driver{Metric: c.Rule.Metric, PercentChange: c.PercentChange}
	}
	return out
}

// DirectionOf is the sign of a percent change; zero counts as positive.
func DirectionOf(percentChange float64) model.Direction {
	if percentChange < 0 {
		return model.DirectionNegative
	}
	return model.DirectionPositive
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
