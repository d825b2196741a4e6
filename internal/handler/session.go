package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockloop/interview-engine/internal/interview"
	"github.com/mockloop/interview-engine/internal/middleware"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/service"
)

type SessionAPI interface {
	Start(ctx context.Context, req service.StartSessionRequest) (*service.StartSessionResult, error)
	Get(ctx context.Context, id string) (*service.SessionView, error)
	Timer(ctx context.Context, id string) (*interview.TimerState, error)
	ModeContext(ctx context.Context, id string) (*service.ModeContext, error)
	Advance(ctx context.Context, id string, requested model.Section) (*interview.Transition, error)
}

var _ SessionAPI = (*service.SessionService)(nil)

type SessionHandler struct {
	sessions SessionAPI
}

func NewSessionHandler(sessions SessionAPI) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, middleware.SessionIDParam)
}

// POST /api/v1/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req service.StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.sessions.Start(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GET /api/v1/sessions/{sessionId}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Get(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GET /api/v1/sessions/{sessionId}/timer
func (h *SessionHandler) Timer(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Timer(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GET /api/v1/sessions/{sessionId}/mode
func (h *SessionHandler) Mode(w http.ResponseWriter, r *http.Request) {
	mc, err := h.sessions.ModeContext(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mc)
}

type advanceRequest struct {
	RequestedSection model.Section `json:"requestedSection"`
}

// POST /api/v1/sessions/{sessionId}/advance
func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	transition, err := h.sessions.Advance(r.Context(), sessionID(r), req.RequestedSection)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transition)
}
