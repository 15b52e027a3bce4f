// Package api exposes the engine's read and calibration surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	service "github.com/okian/driftwatch/internal/app"
	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/domain/model"
	"github.com/okian/driftwatch/internal/domain/types"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider

	SetBaseline(ctx context.Context, teamID string, value *float64, date *time.Time) (model.Baseline, error)
	CompareToBaseline(ctx context.Context, teamID string) (*types.Comparison, error)

	GetHistoryRange(ctx context.Context, teamID string, days int) ([]model.HistorySnapshot, error)
	CalculateTrend(ctx context.Context, teamID string, start, end time.Time) (*types.TrendResult, error)
	Velocity(ctx context.Context, teamID string) (*float64, error)

	CalculateCompositeScore(ctx context.Context, scopeID string, opts service.ScoreOptions) (model.CompositeScore, error)
	GetScoreHistory(ctx context.Context, scopeID string, opts service.HistoryOptions) ([]model.CompositeScore, error)

	ListDriftEvents(ctx context.Context, teamID string) ([]model.DriftEvent, error)
	AcknowledgeDriftEvent(ctx context.Context, id string) (model.DriftEvent, error)
}

// Server wires HTTP routes for the engine API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	baselineHandler *BaselineHandler
	historyHandler  *HistoryHandler
	scoresHandler   *ScoresHandler
	driftHandler    *DriftHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		baselineHandler: &BaselineHandler{deps: deps},
		historyHandler:  &HistoryHandler{deps: deps},
		scoresHandler:   &ScoresHandler{deps: deps},
		driftHandler:    &DriftHandler{deps: deps},
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /teams/{id}/baseline", MetricsMiddleware(s.baselineHandler.HandleSet, "set_baseline"))
	mux.HandleFunc("GET /teams/{id}/baseline", MetricsMiddleware(s.baselineHandler.HandleCompare, "compare_baseline"))
	mux.HandleFunc("GET /teams/{id}/history", MetricsMiddleware(s.historyHandler.HandleRange, "history"))
	mux.HandleFunc("GET /teams/{id}/trend", MetricsMiddleware(s.historyHandler.HandleTrend, "trend"))
	mux.HandleFunc("GET /teams/{id}/velocity", MetricsMiddleware(s.historyHandler.HandleVelocity, "velocity"))

	mux.HandleFunc("GET /scores/{scope}", MetricsMiddleware(s.scoresHandler.HandleScore, "score"))
	mux.HandleFunc("GET /scores/{scope}/history", MetricsMiddleware(s.scoresHandler.HandleHistory, "score_history"))

	mux.HandleFunc("GET /drift-events", MetricsMiddleware(s.driftHandler.HandleList, "drift_events"))
	mux.HandleFunc("POST /drift-events/{id}/ack", MetricsMiddleware(s.driftHandler.HandleAck, "ack_drift_event"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

// intQuery reads a positive integer query parameter, or def when absent.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrBadRequest, name)
	}
	return v, nil
}

// parseDate accepts RFC3339 or a calendar day. A calendar day means the end
// of that day, so entries captured during it count as at or before it.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not RFC3339 or YYYY-MM-DD", ErrBadRequest, raw)
	}
	return d.Add(24*time.Hour - time.Nanosecond), nil
}
