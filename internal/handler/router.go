package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mockloop/interview-engine/internal/config"
	"github.com/mockloop/interview-engine/internal/metrics"
	"github.com/mockloop/interview-engine/internal/middleware"
)

// RouterConfig carries everything the HTTP surface is assembled from.
type RouterConfig struct {
	Sessions  *SessionHandler
	Interview *InterviewHandler
	Events    http.Handler
	Admin     *AdminHandler

	SessionAuth *middleware.SessionAuthMiddleware
	AdminAuth   *middleware.AdminAuthMiddleware
	CodeLimit   *middleware.RateLimitMiddleware
	StartLimit  *middleware.RateLimitMiddleware

	CORSOrigins    []string
	IsProduction   bool
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter wires the API. The event stream is kept outside the request
// timeout since it stays open for the life of the session.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = config.ServerRequestTimeout
	}
	passthrough := func(next http.Handler) http.Handler { return next }
	limit := func(m *middleware.RateLimitMiddleware) func(http.Handler) http.Handler {
		if m == nil {
			return passthrough
		}
		return m.Handler
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.NewSecurityHeadersMiddleware(cfg.IsProduction).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.NewBodyLimitMiddleware(cfg.MaxBodyBytes).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.With(chimiddleware.Timeout(cfg.RequestTimeout), limit(cfg.StartLimit)).
			Post("/", cfg.Sessions.Start)

		r.Route("/{"+middleware.SessionIDParam+"}", func(r chi.Router) {
			r.Use(cfg.SessionAuth.Handler)

			if cfg.Events != nil {
				r.Method(http.MethodGet, "/events", cfg.Events)
			}

			r.Group(func(r chi.Router) {
				r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

				r.Get("/", cfg.Sessions.Get)
				r.Get("/timer", cfg.Sessions.Timer)
				r.Get("/mode", cfg.Sessions.Mode)
				r.Post("/advance", cfg.Sessions.Advance)

				r.With(limit(cfg.CodeLimit)).Post("/code", cfg.Interview.SubmitCode)
				r.Post("/submissions/{"+submissionIDParam+"}/complexity", cfg.Interview.ValidateComplexity)
				r.Post("/submissions/{"+submissionIDParam+"}/escalate", cfg.Interview.Escalate)

				r.Post("/answers", cfg.Interview.EvaluateAnswer)
				r.Post("/follow-ups", cfg.Interview.FollowUp)
				r.Post("/designs", cfg.Interview.EvaluateDesign)
				r.Post("/stress", cfg.Interview.Stress)

				r.Post("/finalize", cfg.Interview.Finalize)
				r.Get("/evaluation", cfg.Interview.Evaluation)
			})
		})
	})

	if cfg.Admin != nil && cfg.AdminAuth != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.AdminAuth.Handler)
			r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
			r.Mount("/", cfg.Admin.Routes())
		})
	}

	return r
}
