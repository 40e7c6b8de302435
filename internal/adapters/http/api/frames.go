package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/hoopvision/internal/adapters/source"
	"github.com/okian/hoopvision/internal/domain/types"
)

const maxFrameBodyBytes = 1 << 20

// FrameDependencies defines frame ingestion.
type FrameDependencies interface {
	SubmitFrame(ctx context.Context, id string, rec source.Record) (types.FrameResult, error)
}

// FramesHandler handles frame submissions.
type FramesHandler struct {
	deps FrameDependencies
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps FrameDependencies) *FramesHandler {
	return &FramesHandler{deps: deps}
}

// HandlePostFrame handles POST /sessions/{id}/frames. The frame is processed
// before the response is written.
func (h *FramesHandler) HandlePostFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_frame"
	var req frameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.SubmitFrame(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
