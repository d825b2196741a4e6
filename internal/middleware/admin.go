package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mockloop/interview-engine/internal/audit"
	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/util"
)

const AdminUser = "admin"

// AdminAuthMiddleware guards operator routes with HTTP basic auth checked
// against a bcrypt hash. Without a configured hash every request is refused.
type AdminAuthMiddleware struct {
	passwordHash string
	limiter      *LoginRateLimiter
}

func NewAdminAuthMiddleware(passwordHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{
		passwordHash: passwordHash,
		limiter:      NewLoginRateLimiter(),
	}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.passwordHash == "" {
			writeError(w, apperrors.Forbidden("Admin access is not configured"))
			return
		}

		ip := audit.ClientIP(r)
		if m.limiter.Blocked(ip) {
			log.Warn().Str("ip", ip).Msg("admin login rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			writeError(w, apperrors.RateLimitExceeded())
			return
		}

		user, password, ok := r.BasicAuth()
		if !ok || !util.ConstantTimeEqual(user, AdminUser) || !util.CheckPasswordHash(password, m.passwordHash) {
			m.limiter.Fail(ip)
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"scope": "admin"},
			})
			w.Header().Set("WWW-Authenticate", `Basic realm="interview-admin"`)
			writeError(w, apperrors.Unauthorized("Invalid admin credentials"))
			return
		}

		m.limiter.Reset(ip)
		next.ServeHTTP(w, r)
	})
}
