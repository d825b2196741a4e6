package handler

import (
	"net/http"
	"strconv"

	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/util"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

var listableStatuses = []model.SessionStatus{
	model.SessionStatusActive,
	model.SessionStatusCompleted,
}

// sessionQuery is the filter and page of an admin session listing.
type sessionQuery struct {
	Status model.SessionStatus
	Limit  int
	Offset int
}

// parseSessionQuery reads ?status=&limit=&offset=. A missing limit gets the
// default and an oversized one is capped; malformed numbers are rejected.
func parseSessionQuery(r *http.Request) (sessionQuery, error) {
	q := r.URL.Query()
	out := sessionQuery{
		Status: model.SessionStatus(q.Get("status")),
		Limit:  DefaultLimit,
	}

	if !util.IsValidEnum(out.Status, listableStatuses) {
		return out, apperrors.InvalidInput("status", "must be active or completed")
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return out, apperrors.InvalidInput("limit", "must be a positive integer")
		}
		out.Limit = min(limit, MaxLimit)
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return out, apperrors.InvalidInput("offset", "must be a non-negative integer")
		}
		out.Offset = offset
	}

	return out, nil
}
