package scoring

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithPillarWeights sets the default top-level pillar weights. Weights are used
// as given; callers are responsible for them summing to 1.0.
func WithPillarWeights(weights map[string]float64) Option {
	return func(c *Calculator) {
		if len(weights) > 0 {
			c.pillarWeights = copyWeights(weights)
		}
	}
}

// WithEnergyWeights sets the energy index indicator weights.
func WithEnergyWeights(weights map[string]float64) Option {
	return func(c *Calculator) {
		if len(weights) > 0 {
			c.energyWeights = copyWeights(weights)
		}
	}
}

// WithRecommender sets the playbook used for the energy index action.
func WithRecommender(r Recommender) Option {
	return func(c *Calculator) {
		if r != nil {
			c.recommender = r
		}
	}
}

func copyWeights(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if v >= 0 {
			out[k] = v
		}
	}
	return out
}
