package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mockloop/interview-engine/internal/audit"
	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/util"
)

type contextKey string

const SessionContextKey contextKey = "session"

// SessionIDParam is the chi URL parameter naming the session in a route.
const SessionIDParam = "sessionId"

func GetSession(ctx context.Context) *model.Session {
	if session, ok := ctx.Value(SessionContextKey).(*model.Session); ok {
		return session
	}
	return nil
}

// WithSession is used by handlers under test to skip authentication.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, s)
}

type Authenticator interface {
	Authenticate(ctx context.Context, sessionID, token string) (*model.Session, error)
}

// SessionAuthMiddleware checks that the bearer token was issued for the
// session named in the path.
type SessionAuthMiddleware struct {
	auth Authenticator
}

func NewSessionAuthMiddleware(auth Authenticator) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{auth: auth}
}

func (m *SessionAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, SessionIDParam)
		if !util.IsValidUUID(sessionID) {
			writeError(w, apperrors.NotFound("Session"))
			return
		}

		session, err := m.auth.Authenticate(r.Context(), sessionID, extractToken(r))
		if err != nil {
			if code := apperrors.GetCode(err); code == apperrors.ErrCodeUnauthorized || code == apperrors.ErrCodeInvalidToken {
				audit.LogFromRequest(r, audit.Event{
					Type:      audit.EventAuthFailure,
					SessionID: sessionID,
					Details:   map[string]interface{}{"reason": err.Error()},
				})
			}
			writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// extractToken reads the bearer header, falling back to a token query
// parameter for EventSource clients that cannot set headers.
func extractToken(r *http.Request) string {
	if token := util.BearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
