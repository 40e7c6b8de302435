// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/hoopvision/internal/adapters/mq/queue"
	"github.com/okian/hoopvision/internal/adapters/repository"
	"github.com/okian/hoopvision/internal/adapters/source"
	service "github.com/okian/hoopvision/internal/app"
	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/domain/types"
	"github.com/okian/hoopvision/internal/session"
)

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	FrameDependencies
	LeaderboardDependencies
	RankDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionsHandler    *SessionsHandler
	framesHandler      *FramesHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		sessionsHandler:    NewSessionsHandler(deps),
		framesHandler:      NewFramesHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))
	mux.HandleFunc("GET /sessions", MetricsMiddleware(s.sessionsHandler.HandleList, "sessions"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleSummary, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleClose, "session"))
	mux.HandleFunc("GET /sessions/{id}/stats", MetricsMiddleware(s.sessionsHandler.HandleStats, "session_stats"))
	mux.HandleFunc("GET /sessions/{id}/events", MetricsMiddleware(s.sessionsHandler.HandleEvents, "session_events"))
	mux.HandleFunc("POST /sessions/{id}/frames", MetricsMiddleware(s.framesHandler.HandlePostFrame, "frames"))
	mux.HandleFunc("GET /sessions/{id}/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /sessions/{id}/rank/{player}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

// createSessionRequest is the optional body of POST /sessions.
type createSessionRequest struct {
	SessionID   string             `json:"session_id"`
	Calibration *model.Calibration `json:"calibration,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// frameRequest is the body of POST /sessions/{id}/frames.
type frameRequest = source.Record

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

// writeDomainError translates upstream sentinel errors to status codes.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, service.ErrSessionExists):
		writeError(w, http.StatusConflict, "session_exists", Wrap(op, err))
	case errors.Is(err, session.ErrOutOfOrder):
		writeError(w, http.StatusConflict, "out_of_order", Wrap(op, err))
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusConflict, "session_closed", Wrap(op, err))
	case errors.Is(err, service.ErrInvalidFrame),
		errors.Is(err, model.ErrInvalidCalibration),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
