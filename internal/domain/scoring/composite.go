package scoring

import (
	"math"

	"github.com/okian/driftwatch/internal/domain/confidence"
	"github.com/okian/driftwatch/internal/domain/model"
)

// Recommender looks up a recommended action for a metric moving in a direction.
type Recommender interface {
	Recommend(metric string, dir model.Direction) string
}

// Input is everything the calculator reads for one scope and period.
type Input struct {
	ScopeID string
	// Averages holds the per-signal window averages; nil fields are missing data.
	Averages model.MetricSnapshot
	// Previous is the preceding period's record for the same scope, if any.
	Previous *model.CompositeScore
	// Weights overrides the calculator's pillar weights when non-empty.
	Weights map[string]float64
	// LatestDrift is the most recent drift event for the scope, if any.
	LatestDrift *model.DriftEvent
}

// Calculator computes composite scores. It holds no mutable state and is safe
// for concurrent use.
type Calculator struct {
	pillarWeights map[string]float64
	energyWeights map[string]float64
	recommender   Recommender
}

// NewCalculator creates a calculator with default weights.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		pillarWeights: DefaultPillarWeights(),
		energyWeights: DefaultEnergyWeights(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PillarWeights returns a copy of the default pillar weights.
func (c *Calculator) PillarWeights() map[string]float64 {
	return copyWeights(c.pillarWeights)
}

// Calculate computes the four-pillar composite with trend, zone, confidence and
// the energy report. Period fields are left to the caller. Missing inputs
// degrade to neutral values; Calculate never fails.
func (c *Calculator) Calculate(in Input) model.CompositeScore {
	weights := in.Weights
	if len(weights) == 0 {
		weights = c.pillarWeights
	}
	avg := &in.Averages

	out := model.CompositeScore{
		ScopeID: in.ScopeID,
		Pillars: make(map[string]model.PillarScore, len(pillars)),
		Weights: copyWeights(weights),
	}

	var overall float64
	for _, def := range pillars {
		r := evalPillar(def, avg)
		score := int(math.Round(r.score))

		var prev *float64
		if in.Previous != nil {
			if p, ok := in.Previous.Pillars[def.name]; ok {
				v := float64(p.Score)
				prev = &v
			}
		}
		trend, pct := CompareToPrevious(float64(score), prev)
		out.Pillars[def.name] = model.PillarScore{
			Score:      score,
			Components: r.components,
			Trend:      trend,
			TrendPct:   pct,
		}
		overall += weights[def.name] * float64(score)
		if r.present == 0 {
			out.Degraded = true
		}
	}

	out.Score = ClampRound(overall)
	out.Zone = ClassifyZone(out.Score)

	var prevOverall *float64
	if in.Previous != nil {
		v := float64(in.Previous.Score)
		prevOverall = &v
		ps := in.Previous.Score
		out.PreviousScore = &ps
	}
	out.Trend, out.TrendPct = CompareToPrevious(float64(out.Score), prevOverall)

	out.DataQuality, _ = confidence.ForComposite(avg)
	out.MetricsAvailable = countPresent(avg)
	if avg.DecisionClosureRate != nil {
		v := *avg.DecisionClosureRate
		out.DecisionClosure = &v
	}
	out.DCRConfidence = confidence.ForDecisionClosure(avg)
	if out.DataQuality == model.ConfidenceLow {
		out.Degraded = true
	}

	out.Energy = c.Energy(EnergyInput{
		Resilience:          pillarScore(out.Pillars, model.PillarWellbeing),
		ExecutionCapacity:   pillarScore(out.Pillars, model.PillarExecution),
		DecisionSpeed:       normalizeSignal(avg, model.SignalDecisionLatency),
		StructuralHealth:    normalizeSignal(avg, model.SignalNetworkBreadth),
		DecisionClosureRate: scaled(avg.DecisionClosureRate),
	}, in.LatestDrift)

	return out
}

func pillarScore(p map[string]model.PillarScore, name string) *float64 {
	ps, ok := p[name]
	if !ok {
		return nil
	}
	v := float64(ps.Score)
	return &v
}

func scaled(v *float64) *float64 {
	if v == nil {
		return nil
	}
	s := Clamp(*v * maxScore)
	return &s
}

func countPresent(avg *model.MetricSnapshot) int {
	n := 0
	for _, s := range model.AllSignals {
		if avg.Value(s) != nil {
			n++
		}
	}
	return n
}
