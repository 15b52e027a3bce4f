// Package types contains read shapes shared by the domain and the HTTP API.
package types

import "time"

// Comparison is the result of comparing a team's current score to its baseline.
type Comparison struct {
	TeamID            string    `json:"team_id"`
	BaselineValue     float64   `json:"baseline_value"`
	CurrentValue      float64   `json:"current_value"`
	Change            float64   `json:"change"`
	PercentChange     float64   `json:"percent_change"`
	DaysSinceBaseline int       `json:"days_since_baseline"`
	BaselineDate      time.Time `json:"baseline_date"`
}

// TrendResult is a point-in-time delta between two history boundaries.
type TrendResult struct {
	Start         float64   `json:"start"`
	End           float64   `json:"end"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percent_change"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
}

// SweepReport summarizes one batch pass over all teams.
type SweepReport struct {
	Cycle     string            `json:"cycle"`
	Kind      string            `json:"kind"`
	Processed []string          `json:"processed"`
	Skipped   []string          `json:"skipped"`
	Failed    map[string]string `json:"failed"`
}
