package model

import "time"

// Baseline is the reference a team is compared against. It is replaced only by
// an explicit calibration.
type Baseline struct {
	TeamID     string             `json:"team_id"`
	Value      float64            `json:"value"`
	Signals    map[string]float64 `json:"signals"`
	CapturedAt time.Time          `json:"captured_at"`
}

// Direction of a drift relative to baseline.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

// Basis names the units a drift magnitude is expressed in.
type Basis string

const (
	BasisPercent Basis = "percent"
	BasisZScore  Basis = "zscore"
)

// DriftDetails is the explainability payload of a drift event.
type DriftDetails struct {
	WindowAverage float64 `json:"window_average"`
	BaselineValue float64 `json:"baseline_value"`
	PercentChange float64 `json:"percent_change"`
	ZScore        float64 `json:"z_score"`
	Threshold     float64 `json:"threshold"`
	Polarity      string  `json:"polarity"`
	SampleCount   int     `json:"sample_count"`
}

// Driver is one metric's signed contribution to a drift explanation.
type Driver struct {
	Metric        string  `json:"metric"`
	PercentChange float64 `json:"percent_change"`
}

// DriftEvent records one breach for a (team, metric, day).
type DriftEvent struct {
	ID             string       `json:"id"`
	TeamID         string       `json:"team_id"`
	OrgID          string       `json:"org_id,omitempty"`
	Metric         string       `json:"metric"`
	Direction      Direction    `json:"direction"`
	Magnitude      float64      `json:"magnitude"`
	Basis          Basis        `json:"basis"`
	Details        DriftDetails `json:"details"`
	Drivers        []Driver     `json:"drivers"`
	Recommendation string       `json:"recommendation"`
	Acknowledged   bool         `json:"acknowledged"`
	Day            time.Time    `json:"day"`
}

// Key is the uniqueness key of the event: team, metric and calendar day.
func (e *DriftEvent) Key() string {
	return DriftKey(e.TeamID, e.Metric, e.Day)
}

// DriftKey builds the (team, metric, day) uniqueness key.
func DriftKey(teamID, metric string, day time.Time) string {
	return teamID + "|" + metric + "|" + DayKey(day)
}

// Zone is a categorical health bucket.
type Zone string

const (
	ZoneCritical Zone = "critical"
	ZoneAtRisk   Zone = "at-risk"
	ZoneStable   Zone = "stable"
	ZoneThriving Zone = "thriving"
)

// Trend is a hysteresis-classified direction of change.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Confidence describes input completeness.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// Pillar names.
const (
	PillarExecution  = "execution"
	PillarInnovation = "innovation"
	PillarWellbeing  = "wellbeing"
	PillarCulture    = "culture"
)

// PillarScore is one pillar of the four-pillar composite.
type PillarScore struct {
	Score      int                 `json:"score"`
	Components map[string]*float64 `json:"components"`
	Trend      Trend               `json:"trend"`
	TrendPct   int                 `json:"trend_pct"`
}

// Indicator is one named 0..100 input to the energy index.
type Indicator struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// DriftExplanation summarizes the most recent drift for a scope.
type DriftExplanation struct {
	Metric    string    `json:"metric"`
	Direction Direction `json:"direction"`
	Magnitude float64   `json:"magnitude"`
	Drivers   []Driver  `json:"drivers"`
	Day       time.Time `json:"day"`
}

// EnergyReport is the only shape the energy index is surfaced in: the score
// always travels with its top contributors, latest drift and an action.
type EnergyReport struct {
	Score             int               `json:"score"`
	Zone              Zone              `json:"zone"`
	TopContributors   []Indicator       `json:"top_contributors"`
	LatestDrift       *DriftExplanation `json:"latest_drift,omitempty"`
	RecommendedAction string            `json:"recommended_action"`
}

// CompositeScore is the per (scope, period) composite snapshot. It is upserted;
// recomputation overwrites.
type CompositeScore struct {
	ScopeID          string                 `json:"scope_id"`
	PeriodLabel      string                 `json:"period_label"`
	PeriodStart      time.Time              `json:"period_start"`
	PeriodEnd        time.Time              `json:"period_end"`
	Score            int                    `json:"score"`
	Zone             Zone                   `json:"zone"`
	Trend            Trend                  `json:"trend"`
	TrendPct         int                    `json:"trend_pct"`
	PreviousScore    *int                   `json:"previous_score,omitempty"`
	Pillars          map[string]PillarScore `json:"pillars"`
	Weights          map[string]float64     `json:"weights"`
	Energy           EnergyReport           `json:"energy"`
	DecisionClosure  *float64               `json:"decision_closure_rate,omitempty"`
	DCRConfidence    Confidence             `json:"dcr_confidence"`
	DataQuality      Confidence             `json:"data_quality"`
	MetricsAvailable int                    `json:"metrics_available"`
	Degraded         bool                   `json:"degraded"`
}

// HistorySnapshot is a point-in-time capture of a team's score and drivers.
type HistorySnapshot struct {
	TeamID     string             `json:"team_id"`
	Score      float64            `json:"score"`
	Signals    map[string]float64 `json:"signals"`
	CapturedAt time.Time          `json:"captured_at"`
}
