package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	service "github.com/okian/driftwatch/internal/app"
	"github.com/okian/driftwatch/internal/domain/model"
)

const defaultHistoryDays = 30

// BaselineHandler serves team calibration.
type BaselineHandler struct {
	deps Dependencies
}

type baselineRequest struct {
	Value *float64 `json:"value"`
	Date  string   `json:"date"`
}

// HandleSet handles POST /teams/{id}/baseline. Both body fields are optional
// and an empty body is accepted.
func (h *BaselineHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	var req baselineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeEngineError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	var date *time.Time
	if req.Date != "" {
		d, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			if d, err = time.Parse("2006-01-02", req.Date); err != nil {
				writeEngineError(w, fmt.Errorf("%w: date must be RFC3339 or YYYY-MM-DD", ErrBadRequest))
				return
			}
		}
		date = &d
	}

	b, err := h.deps.SetBaseline(r.Context(), r.PathValue("id"), req.Value, date)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleCompare handles GET /teams/{id}/baseline.
func (h *BaselineHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.CompareToBaseline(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if c == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_calibrated"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HistoryHandler serves history queries.
type HistoryHandler struct {
	deps Dependencies
}

// HandleRange handles GET /teams/{id}/history?days=.
func (h *HistoryHandler) HandleRange(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "days", defaultHistoryDays)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	entries, err := h.deps.GetHistoryRange(r.Context(), r.PathValue("id"), days)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if entries == nil {
		entries = []model.HistorySnapshot{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleTrend handles GET /teams/{id}/trend?start=&end=.
func (h *HistoryHandler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		writeEngineError(w, fmt.Errorf("%w: start and end are required", ErrBadRequest))
		return
	}
	start, err := parseDate(q.Get("start"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	end, err := parseDate(q.Get("end"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	trend, err := h.deps.CalculateTrend(r.Context(), r.PathValue("id"), start, end)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if trend == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "insufficient_history"})
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

// HandleVelocity handles GET /teams/{id}/velocity.
func (h *HistoryHandler) HandleVelocity(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Velocity(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*float64{"velocity": v})
}

// ScoresHandler serves composite scores.
type ScoresHandler struct {
	deps Dependencies
}

// HandleScore handles GET /scores/{scope}?period_days=&force=.
func (h *ScoresHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "period_days", 0)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	var force bool
	if raw := r.URL.Query().Get("force"); raw != "" {
		if force, err = strconv.ParseBool(raw); err != nil {
			writeEngineError(w, fmt.Errorf("%w: force must be a boolean", ErrBadRequest))
			return
		}
	}
	c, err := h.deps.CalculateCompositeScore(r.Context(), r.PathValue("scope"), service.ScoreOptions{
		PeriodDays:       days,
		ForceRecalculate: force,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleHistory handles GET /scores/{scope}/history?team_id=&limit=.
func (h *ScoresHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	list, err := h.deps.GetScoreHistory(r.Context(), r.PathValue("scope"), service.HistoryOptions{
		TeamID: r.URL.Query().Get("team_id"),
		Limit:  limit,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// DriftHandler serves drift events.
type DriftHandler struct {
	deps Dependencies
}

// HandleList handles GET /drift-events?team_id=.
func (h *DriftHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.deps.ListDriftEvents(r.Context(), r.URL.Query().Get("team_id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if events == nil {
		events = []model.DriftEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleAck handles POST /drift-events/{id}/ack.
func (h *DriftHandler) HandleAck(w http.ResponseWriter, r *http.Request) {
	e, err := h.deps.AcknowledgeDriftEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
