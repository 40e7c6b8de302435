package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/domain/types"
)

// SessionDependencies defines the session lifecycle and read operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, id string, calib *model.Calibration) (string, error)
	CloseSession(ctx context.Context, id string) (types.SessionSummary, error)
	ListSessions(ctx context.Context) []types.SessionSummary
	Summary(ctx context.Context, id string) (types.SessionSummary, error)
	PlayerStats(ctx context.Context, id string) (map[string]model.PlayerStats, error)
	Events(ctx context.Context, id string) ([]model.GameEvent, error)
}

// SessionsHandler handles session requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleCreate handles POST /sessions. The body is optional.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	id, err := h.deps.CreateSession(r.Context(), req.SessionID, req.Calibration)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

// HandleList handles GET /sessions.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ListSessions(r.Context()))
}

// HandleSummary handles GET /sessions/{id}.
func (h *SessionsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.deps.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, "api.get_session", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleClose handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	sum, err := h.deps.CloseSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, "api.close_session", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleStats handles GET /sessions/{id}/stats.
func (h *SessionsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.PlayerStats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, "api.get_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleEvents handles GET /sessions/{id}/events.
func (h *SessionsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	evts, err := h.deps.Events(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, "api.get_events", err)
		return
	}
	if evts == nil {
		evts = []model.GameEvent{}
	}
	writeJSON(w, http.StatusOK, evts)
}
