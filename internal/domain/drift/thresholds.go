package drift

import (
	"sort"

	"github.com/okian/driftwatch/internal/domain/model"
)

// Polarity selects the breach rule applied to a metric.
type Polarity string

const (
	// PolarityPercent breaches when |percentChange| >= threshold.
	PolarityPercent Polarity = "percent"
	// PolarityFloor breaches when the window average drops below threshold.
	PolarityFloor Polarity = "floor"
	// PolarityCeiling breaches when the window average exceeds threshold.
	PolarityCeiling Polarity = "ceiling"
)

// Valid reports whether p is a known polarity.
func (p Polarity) Valid() bool {
	switch p {
	case PolarityPercent, PolarityFloor, PolarityCeiling:
		return true
	}
	return false
}

// Rule is the breach rule for one tracked metric.
type Rule struct {
	Metric    string // name used on drift events, e.g. "afterHours"
	Signal    string // baseline / snapshot key, e.g. "afterHoursRate"
	Polarity  Polarity
	Threshold float64
}

// Override replaces a metric's threshold and, optionally, its polarity.
type Override struct {
	Threshold float64  `koanf:"threshold" json:"threshold"`
	Polarity  Polarity `koanf:"polarity" json:"polarity,omitempty"`
}

// DefaultRules returns the documented default thresholds.
func DefaultRules() []Rule {
	return []Rule{
		{Metric: "meetingLoad", Signal: model.SignalMeetingLoad, Polarity: PolarityPercent, Threshold: 30},
		{Metric: "afterHours", Signal: model.SignalAfterHours, Polarity: PolarityPercent, Threshold: 20},
		{Metric: "responseLatency", Signal: model.SignalResponseLatency, Polarity: PolarityPercent, Threshold: 25},
		{Metric: "sentiment", Signal: model.SignalSentiment, Polarity: PolarityPercent, Threshold: 15},
		{Metric: "networkBreadth", Signal: model.SignalNetworkBreadth, Polarity: PolarityPercent, Threshold: 20},
		{Metric: "focusTime", Signal: model.SignalFocusTime, Polarity: PolarityFloor, Threshold: 0.50},
		{Metric: "recoveryDays", Signal: model.SignalRecoveryDays, Polarity: PolarityCeiling, Threshold: 14},
		{Metric: "energyIndex", Signal: model.SignalEnergyIndex, Polarity: PolarityFloor, Threshold: 60},
	}
}

// MergeRules applies overrides to base. An override keyed by a tracked metric
// (or its signal) replaces the threshold and keeps the existing polarity unless
// one is given. An override keyed by any other known signal adds a rule for it,
// percent-based unless a polarity is given. Unknown keys are ignored.
func MergeRules(base []Rule, overrides map[string]Override) []Rule {
	out := append([]Rule(nil), base...)
	if len(overrides) == 0 {
		return out
	}
	index := make(map[string]int, len(out)*2)
	for i, r := range out {
		index[r.Metric] = i
		index[r.Signal] = i
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		o := overrides[k]
		if i, ok := index[k]; ok {
			out[i].Threshold = o.Threshold
			if o.Polarity.Valid() {
				out[i].Polarity = o.Polarity
			}
			continue
		}
		if !knownSignal(k) {
			continue
		}
		p := PolarityPercent
		if o.Polarity.Valid() {
			p = o.Polarity
		}
		out = append(out, Rule{Metric: k, Signal: k, Polarity: p, Threshold: o.Threshold})
		index[k] = len(out) - 1
	}
	return out
}

func knownSignal(k string) bool {
	for _, s := range model.AllSignals {
		if s == k {
			return true
		}
	}
	return false
}

// Breached applies the rule to a window average and percent change.
func (r Rule) Breached(avg, percentChange float64) bool {
	switch r.Polarity {
	case PolarityCeiling:
		return avg > r.Threshold
	case PolarityFloor:
		return avg < r.Threshold
	default:
		return abs(percentChange) >= r.Threshold
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
