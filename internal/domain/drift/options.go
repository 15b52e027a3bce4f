package drift

import (
	"github.com/okian/driftwatch/internal/domain/dedupe"
	"github.com/okian/driftwatch/pkg/logger"
)

// Option configures a Detector.
type Option func(*Detector)

// WithRecommender sets the playbook used for event recommendations.
func WithRecommender(r Recommender) Option {
	return func(d *Detector) {
		if r != nil {
			d.recommender = r
		}
	}
}

// WithRules replaces the base rules. Per-call overrides still apply on top.
func WithRules(rules []Rule) Option {
	return func(d *Detector) {
		if len(rules) > 0 {
			d.rules = append([]Rule(nil), rules...)
		}
	}
}

// WithOverrides applies configured overrides to the base rules once.
func WithOverrides(overrides map[string]Override) Option {
	return func(d *Detector) {
		d.rules = MergeRules(d.rules, overrides)
	}
}

// WithDeduper sets the in-process record of drift keys already handled.
func WithDeduper(seen dedupe.Deduper) Option {
	return func(d *Detector) {
		if seen != nil {
			d.seen = seen
		}
	}
}

// WithLogger sets the detector's logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}
