package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockloop/interview-engine/internal/audit"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/service"
)

type AdminAPI interface {
	ListSessions(ctx context.Context, status model.SessionStatus, limit, offset int) ([]model.Session, int, error)
	Sweep(ctx context.Context) (*service.SweepResult, error)
}

var _ AdminAPI = (*service.AdminService)(nil)

type AdminHandler struct {
	admin AdminAPI
}

func NewAdminHandler(admin AdminAPI) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Routes expects to be mounted behind admin authentication.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/sessions", h.ListSessions)
	r.Post("/sweep", h.Sweep)

	return r
}

// GET /admin/sessions?status=&limit=&offset=
func (h *AdminHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	q, err := parseSessionQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sessions, total, err := h.admin.ListSessions(r.Context(), q.Status, q.Limit, q.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":  sessions,
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

// POST /admin/sweep
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.admin.Sweep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	audit.LogFromRequest(r, audit.Event{
		Type: audit.EventAdminSweep,
		Details: map[string]interface{}{
			"advanced":  result.Advanced,
			"finalized": result.Finalized,
			"failed":    result.Failed,
		},
	})
	writeJSON(w, http.StatusOK, result)
}
