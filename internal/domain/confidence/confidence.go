// Package confidence grades how much of the expected input surface was
// available for a computation.
package confidence

import "github.com/okian/driftwatch/internal/domain/model"

// Label thresholds on the completeness ratio.
const (
	highRatio   = 0.66
	mediumRatio = 0.33
)

// CompositeKeyInputs are the signals the four-pillar composite depends on most.
var CompositeKeyInputs = []string{
	model.SignalMeetingLoad,
	model.SignalFocusTime,
	model.SignalAfterHours,
	model.SignalSentiment,
	model.SignalNetworkBreadth,
}

// dcrCategories are the collaboration categories feeding the decision closure rate.
var dcrCategories = []string{
	model.SignalMeetingCount,
	model.SignalMessageCount,
	model.SignalThreadCount,
}

// Completeness returns present/total, or 0 when total is not positive.
func Completeness(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(present) / float64(total)
}

// Label maps a completeness ratio to a confidence label.
func Label(ratio float64) model.Confidence {
	switch {
	case ratio >= highRatio:
		return model.ConfidenceHigh
	case ratio >= mediumRatio:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// ForComposite grades the composite key inputs present in avg.
// It returns the label and the number of key inputs present.
func ForComposite(avg *model.MetricSnapshot) (model.Confidence, int) {
	present := 0
	for _, s := range CompositeKeyInputs {
		if avg.Value(s) != nil {
			present++
		}
	}
	return Label(Completeness(present, len(CompositeKeyInputs))), present
}

// ForDecisionClosure counts the categories (meetings, messages, threads) with a
// non-zero total.
func ForDecisionClosure(totals *model.MetricSnapshot) model.Confidence {
	present := 0
	for _, s := range dcrCategories {
		if v := totals.Value(s); v != nil && *v != 0 {
			present++
		}
	}
	return Label(Completeness(present, len(dcrCategories)))
}
