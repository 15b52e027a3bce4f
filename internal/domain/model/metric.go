// Package model contains domain models passed between layers.
package model

import "time"

// Signal keys used in baseline signal maps and drift details.
const (
	SignalMeetingLoad         = "meetingLoadIndex"
	SignalAfterHours          = "afterHoursRate"
	SignalResponseLatency     = "responseLatency"
	SignalSentiment           = "sentimentScore"
	SignalFocusTime           = "focusTimeRatio"
	SignalRecoveryDays        = "recoveryDays"
	SignalNetworkBreadth      = "networkBreadth"
	SignalInterruptionRate    = "interruptionRate"
	SignalFlowEfficiency      = "flowEfficiency"
	SignalDecisionLatency     = "decisionLatency"
	SignalExperimentRate      = "experimentRate"
	SignalCrossTeamRatio      = "crossTeamRatio"
	SignalEnergyIndex         = "energyIndex"
	SignalDecisionClosureRate = "decisionClosureRate"
	SignalMessageCount        = "messageCount"
	SignalThreadCount         = "threadCount"
	SignalMeetingCount        = "meetingCount"
)

// AllSignals lists every signal a MetricSnapshot can carry, in storage order.
var AllSignals = []string{
	SignalMeetingLoad,
	SignalAfterHours,
	SignalResponseLatency,
	SignalSentiment,
	SignalFocusTime,
	SignalRecoveryDays,
	SignalNetworkBreadth,
	SignalInterruptionRate,
	SignalFlowEfficiency,
	SignalDecisionLatency,
	SignalExperimentRate,
	SignalCrossTeamRatio,
	SignalEnergyIndex,
	SignalDecisionClosureRate,
	SignalMessageCount,
	SignalThreadCount,
	SignalMeetingCount,
}

// MetricSnapshot is one aggregated row per team per day. Rows are produced by
// the collection connectors and never modified afterwards; any field may be nil.
type MetricSnapshot struct {
	TeamID string    `json:"team_id"`
	OrgID  string    `json:"org_id,omitempty"`
	Day    time.Time `json:"day"`

	MeetingLoadIndex    *float64 `json:"meeting_load_index,omitempty"`
	AfterHoursRate      *float64 `json:"after_hours_rate,omitempty"`
	ResponseLatency     *float64 `json:"response_latency,omitempty"`
	SentimentScore      *float64 `json:"sentiment_score,omitempty"`
	FocusTimeRatio      *float64 `json:"focus_time_ratio,omitempty"`
	RecoveryDays        *float64 `json:"recovery_days,omitempty"`
	NetworkBreadth      *float64 `json:"network_breadth,omitempty"`
	InterruptionRate    *float64 `json:"interruption_rate,omitempty"`
	FlowEfficiency      *float64 `json:"flow_efficiency,omitempty"`
	DecisionLatency     *float64 `json:"decision_latency,omitempty"`
	ExperimentRate      *float64 `json:"experiment_rate,omitempty"`
	CrossTeamRatio      *float64 `json:"cross_team_ratio,omitempty"`
	EnergyIndex         *float64 `json:"energy_index,omitempty"`
	DecisionClosureRate *float64 `json:"decision_closure_rate,omitempty"`
	MessageCount        *float64 `json:"message_count,omitempty"`
	ThreadCount         *float64 `json:"thread_count,omitempty"`
	MeetingCount        *float64 `json:"meeting_count,omitempty"`
}

// Value returns the field for a signal key, or nil if the key is unknown or
// the field is absent.
func (m *MetricSnapshot) Value(signal string) *float64 {
	if p := m.field(signal); p != nil {
		return *p
	}
	return nil
}

// Set assigns a signal value. Unknown keys are ignored.
func (m *MetricSnapshot) Set(signal string, v *float64) {
	if p := m.field(signal); p != nil {
		*p = v
	}
}

func (m *MetricSnapshot) field(signal string) **float64 {
	switch signal {
	case SignalMeetingLoad:
		return &m.MeetingLoadIndex
	case SignalAfterHours:
		return &m.AfterHoursRate
	case SignalResponseLatency:
		return &m.ResponseLatency
	case SignalSentiment:
		return &m.SentimentScore
	case SignalFocusTime:
		return &m.FocusTimeRatio
	case SignalRecoveryDays:
		return &m.RecoveryDays
	case SignalNetworkBreadth:
		return &m.NetworkBreadth
	case SignalInterruptionRate:
		return &m.InterruptionRate
	case SignalFlowEfficiency:
		return &m.FlowEfficiency
	case SignalDecisionLatency:
		return &m.DecisionLatency
	case SignalExperimentRate:
		return &m.ExperimentRate
	case SignalCrossTeamRatio:
		return &m.CrossTeamRatio
	case SignalEnergyIndex:
		return &m.EnergyIndex
	case SignalDecisionClosureRate:
		return &m.DecisionClosureRate
	case SignalMessageCount:
		return &m.MessageCount
	case SignalThreadCount:
		return &m.ThreadCount
	case SignalMeetingCount:
		return &m.MeetingCount
	}
	return nil
}

// Float returns a pointer to v. Handy for building snapshots.
func Float(v float64) *float64 { return &v }

// Team identifies a team and the organization it belongs to.
type Team struct {
	ID    string `json:"id"`
	OrgID string `json:"org_id,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey formats t as YYYY-MM-DD in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
