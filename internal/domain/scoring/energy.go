package scoring

import (
	"sort"

	"github.com/okian/driftwatch/internal/domain/model"
)

// Energy index indicator names.
const (
	IndicatorResilience          = "resilience"
	IndicatorExecutionCapacity   = "executionCapacity"
	IndicatorDecisionSpeed       = "decisionSpeed"
	IndicatorStructuralHealth    = "structuralHealth"
	IndicatorDecisionClosureRate = "decisionClosureRate"
)

const (
	topContributors = 3
	fallbackAction  = "Review the weakest indicator with the team lead and agree one change for the next period."
)

var indicatorOrder = []string{
	IndicatorResilience,
	IndicatorExecutionCapacity,
	IndicatorDecisionSpeed,
	IndicatorStructuralHealth,
	IndicatorDecisionClosureRate,
}

// DefaultEnergyWeights are the flat blend weights of the energy index.
func DefaultEnergyWeights() map[string]float64 {
	return map[string]float64{
		IndicatorResilience:          0.25,
		IndicatorExecutionCapacity:   0.25,
		IndicatorDecisionSpeed:       0.20,
		IndicatorStructuralHealth:    0.15,
		IndicatorDecisionClosureRate: 0.15,
	}
}

// EnergyInput holds the five capability indicators, each 0..100 or nil when
// not yet available.
type EnergyInput struct {
	Resilience          *float64
	ExecutionCapacity   *float64
	DecisionSpeed       *float64
	StructuralHealth    *float64
	DecisionClosureRate *float64
}

func (in EnergyInput) value(name string) *float64 {
	switch name {
	case IndicatorResilience:
		return in.Resilience
	case IndicatorExecutionCapacity:
		return in.ExecutionCapacity
	case IndicatorDecisionSpeed:
		return in.DecisionSpeed
	case IndicatorStructuralHealth:
		return in.StructuralHealth
	case IndicatorDecisionClosureRate:
		return in.DecisionClosureRate
	}
	return nil
}

// Energy blends the indicators into the energy report. Unavailable indicators
// count as neutral.
func (c *Calculator) Energy(in EnergyInput, latest *model.DriftEvent) model.EnergyReport {
	indicators := make([]model.Indicator, 0, len(indicatorOrder))
	var score float64
	for _, name := range indicatorOrder {
		v := float64(neutralScore)
		if p := in.value(name); p != nil {
			v = Clamp(*p)
		}
		indicators = append(indicators, model.Indicator{Name: name, Score: v})
		score += c.energyWeights[name] * v
	}

	ranked := make([]model.Indicator, len(indicators))
	copy(ranked, indicators)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	report := model.EnergyReport{
		Score:           ClampRound(score),
		TopContributors: ranked[:topContributors],
	}
	report.Zone = ClassifyZone(report.Score)

	if latest != nil {
		drivers := make([]model.Driver, len(latest.Drivers))
		copy(drivers, latest.Drivers)
		report.LatestDrift = &model.DriftExplanation{
			Metric:    latest.Metric,
			Direction: latest.Direction,
			Magnitude: latest.Magnitude,
			Drivers:   drivers,
			Day:       latest.Day,
		}
		report.RecommendedAction = latest.Recommendation
	}
	if report.RecommendedAction == "" && c.recommender != nil {
		weakest := ranked[len(ranked)-1]
		report.RecommendedAction = c.recommender.Recommend(weakest.Name, model.DirectionNegative)
	}
	if report.RecommendedAction == "" {
		report.RecommendedAction = fallbackAction
	}
	return report
}
