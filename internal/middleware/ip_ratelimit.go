package middleware

import (
	"net/http"

	"github.com/mockloop/interview-engine/internal/audit"
)

// NewIPRateLimitMiddleware limits unauthenticated endpoints, such as session
// creation, per client address.
func NewIPRateLimitMiddleware(limiter Limiter, limit int, prefix string) *RateLimitMiddleware {
	return NewRateLimitMiddleware(limiter, limit, func(r *http.Request) string {
		return "ip:" + prefix + ":" + audit.ClientIP(r)
	})
}
