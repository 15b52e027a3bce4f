package scoring

import "github.com/okian/driftwatch/internal/domain/model"

// subComponent describes how one raw signal feeds a pillar.
type subComponent struct {
	signal  string
	lo, hi  float64
	inverse bool
	weight  float64
}

// pillarDef is a pillar's fixed sub-weights over normalized sub-components.
type pillarDef struct {
	name       string
	components []subComponent
}

// pillars of the four-pillar composite.
var pillars = []pillarDef{
	{
		name: model.PillarExecution,
		components: []subComponent{
			{signal: model.SignalMeetingLoad, lo: 0, hi: 40, inverse: true, weight: 0.30},
			{signal: model.SignalFocusTime, lo: 0, hi: 1, weight: 0.30},
			{signal: model.SignalFlowEfficiency, lo: 0, hi: 1, weight: 0.25},
			{signal: model.SignalDecisionLatency, lo: 0, hi: 72, inverse: true, weight: 0.15},
		},
	},
	{
		name: model.PillarInnovation,
		components: []subComponent{
			{signal: model.SignalNetworkBreadth, lo: 0, hi: 25, weight: 0.35},
			{signal: model.SignalExperimentRate, lo: 0, hi: 1, weight: 0.35},
			{signal: model.SignalCrossTeamRatio, lo: 0, hi: 1, weight: 0.30},
		},
	},
	{
		name: model.PillarWellbeing,
		components: []subComponent{
			{signal: model.SignalAfterHours, lo: 0, hi: 0.5, inverse: true, weight: 0.40},
			{signal: model.SignalRecoveryDays, lo: 0, hi: 21, inverse: true, weight: 0.30},
			{signal: model.SignalInterruptionRate, lo: 0, hi: 10, inverse: true, weight: 0.30},
		},
	},
	{
		name: model.PillarCulture,
		components: []subComponent{
			{signal: model.SignalSentiment, lo: -1, hi: 1, weight: 0.50},
			{signal: model.SignalResponseLatency, lo: 0, hi: 48, inverse: true, weight: 0.30},
			{signal: model.SignalDecisionClosureRate, lo: 0, hi: 1, weight: 0.20},
		},
	},
}

// DefaultPillarWeights are the top-level pillar weights.
func DefaultPillarWeights() map[string]float64 {
	return map[string]float64{
		model.PillarExecution:  0.30,
		model.PillarInnovation: 0.20,
		model.PillarWellbeing:  0.30,
		model.PillarCulture:    0.20,
	}
}

// pillarResult is a pillar score before trend classification.
type pillarResult struct {
	score      float64
	components map[string]*float64
	present    int
}

func evalPillar(def pillarDef, avg *model.MetricSnapshot) pillarResult {
	res := pillarResult{components: make(map[string]*float64, len(def.components))}
	parts := make([]Component, 0, len(def.components))
	for _, sc := range def.components {
		var norm *float64
		if v := avg.Value(sc.signal); v != nil {
			n := float64(Normalize(*v, sc.lo, sc.hi, sc.inverse))
			norm = &n
			res.present++
		}
		res.components[sc.signal] = norm
		parts = append(parts, Component{Name: sc.signal, Value: norm, Weight: sc.weight})
	}
	res.score = Clamp(WeightedAverage(parts))
	return res
}

// normalizeSignal normalizes one signal using the first pillar range that
// declares it. It returns nil when the signal is absent.
func normalizeSignal(avg *model.MetricSnapshot, signal string) *float64 {
	v := avg.Value(signal)
	if v == nil {
		return nil
	}
	for _, p := range pillars {
		for _, sc := range p.components {
			if sc.signal == signal {
				n := float64(Normalize(*v, sc.lo, sc.hi, sc.inverse))
				return &n
			}
		}
	}
	return nil
}
