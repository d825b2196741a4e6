package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mockloop/interview-engine/internal/config"
	"github.com/mockloop/interview-engine/internal/database"
	"github.com/mockloop/interview-engine/internal/handler"
	"github.com/mockloop/interview-engine/internal/jobs"
	"github.com/mockloop/interview-engine/internal/middleware"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/oracle"
	"github.com/mockloop/interview-engine/internal/redis"
	"github.com/mockloop/interview-engine/internal/repository"
	"github.com/mockloop/interview-engine/internal/sandbox"
	"github.com/mockloop/interview-engine/internal/service"
	"github.com/mockloop/interview-engine/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	log.Info().Msg("database connected")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_URL not set: using in-process events and rate limits")
	}

	evaluator, err := newEvaluator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up evaluation oracle")
	}

	runner, err := newSandboxRunner(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up sandbox")
	}
	harness := sandbox.NewHarness(runner, cfg.SandboxMaxConcurrent)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	deps := service.Deps{
		Tx:          db,
		Sessions:    repository.NewSessionRepository(db.DB),
		Submissions: repository.NewSubmissionRepository(db.DB),
		Messages:    repository.NewMessageRepository(db.DB),
		Evaluations: repository.NewEvaluationRepository(db.DB),
		Evaluator:   evaluator,
		Runner:      harness,
		Events:      broker,
	}
	sessionService := service.NewSessionService(deps)
	evaluationService := service.NewEvaluationService(deps)
	adminService := service.NewAdminService(sessionService, evaluationService, cfg.AbandonAfter())

	var limiter middleware.Limiter = middleware.NewRateLimiter()
	if redisClient != nil {
		limiter = middleware.NewRedisRateLimiter(redisClient.Client)
	}

	r := handler.NewRouter(handler.RouterConfig{
		Sessions: handler.NewSessionHandler(sessionService),
		Interview: handler.NewInterviewHandler(
			service.NewCodeService(deps),
			service.NewAnswerService(deps),
			service.NewDesignService(deps),
			evaluationService,
		),
		Events:         handler.NewEventsHandler(broker),
		Admin:          handler.NewAdminHandler(adminService),
		SessionAuth:    middleware.NewSessionAuthMiddleware(sessionService),
		AdminAuth:      middleware.NewAdminAuthMiddleware(cfg.AdminPasswordHash),
		CodeLimit:      middleware.NewCodeRateLimitMiddleware(limiter, cfg.CodeRateLimitPerMin),
		StartLimit:     middleware.NewIPRateLimitMiddleware(limiter, config.StartRateLimitPerMin, "start"),
		CORSOrigins:    cfg.CORSOrigins,
		IsProduction:   cfg.IsProduction(),
		RequestTimeout: config.ServerRequestTimeout,
		MaxBodyBytes:   config.MaxRequestBodyBytes,
	})

	sweepJob := jobs.NewSweepJob(adminService, cfg.SweepSchedule)
	if err := sweepJob.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start session sweep")
	}
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0, // event streams stay open
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("sandbox", cfg.SandboxBackend).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// newEvaluator builds the oracle chain. Without an API key every evaluation
// takes the fallback path.
func newEvaluator(cfg *config.Config) (*oracle.Evaluator, error) {
	var o oracle.Oracle = oracle.DisabledOracle{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := oracle.NewGeminiClient(context.Background(), oracle.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.OracleTimeout(),
		})
		if err != nil {
			return nil, err
		}
		o = oracle.NewBreaker(gemini, config.OracleFailureThreshold, config.OracleCircuitReset)
		log.Info().Str("model", cfg.GeminiModel).Msg("gemini oracle enabled")
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set: evaluations will use fallback results")
	}
	return oracle.NewEvaluator(o)
}

func newSandboxRunner(cfg *config.Config) (sandbox.Runner, error) {
	if cfg.SandboxBackend != config.SandboxBackendDocker {
		return sandbox.NewProcessRunner(cfg.SandboxWorkDir), nil
	}

	runner, err := sandbox.NewDockerRunner(map[model.Language]string{
		model.LanguagePython:     cfg.SandboxPythonImage,
		model.LanguageJavaScript: cfg.SandboxNodeImage,
	})
	if err != nil {
		return nil, err
	}
	if err := runner.WarmImages(context.Background()); err != nil {
		log.Warn().Err(err).Msg("failed to pre-pull sandbox images")
	}
	return runner, nil
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
