package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	AdminPasswordHash string   `env:"ADMIN_PASSWORD_HASH"`
	CORSOrigins       []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	GeminiAPIKey         string `env:"GEMINI_API_KEY"`
	GeminiModel          string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	OracleTimeoutSeconds int    `env:"ORACLE_TIMEOUT_SECONDS" envDefault:"30"`

	SandboxBackend       string `env:"SANDBOX_BACKEND" envDefault:"process"`
	SandboxMaxConcurrent int    `env:"SANDBOX_MAX_CONCURRENT" envDefault:"4"`
	SandboxWorkDir       string `env:"SANDBOX_WORK_DIR"`
	SandboxPythonImage   string `env:"SANDBOX_PYTHON_IMAGE" envDefault:"python:3.12-alpine"`
	SandboxNodeImage     string `env:"SANDBOX_NODE_IMAGE" envDefault:"node:20-alpine"`

	CodeRateLimitPerMin int    `env:"CODE_RATE_LIMIT" envDefault:"20"`
	SweepSchedule       string `env:"SWEEP_SCHEDULE" envDefault:"@every 1m"`
	AbandonAfterHours   int    `env:"ABANDON_AFTER_HOURS" envDefault:"24"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutSeconds) * time.Second
}

func (c *Config) AbandonAfter() time.Duration {
	return time.Duration(c.AbandonAfterHours) * time.Hour
}

func (c *Config) Validate() error {
	if c.AdminPasswordHash != "" {
		if !strings.HasPrefix(c.AdminPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2y$") {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	switch c.SandboxBackend {
	case SandboxBackendProcess, SandboxBackendDocker:
	default:
		return fmt.Errorf("SANDBOX_BACKEND must be %q or %q", SandboxBackendProcess, SandboxBackendDocker)
	}

	if c.SandboxMaxConcurrent < 1 {
		return fmt.Errorf("SANDBOX_MAX_CONCURRENT must be at least 1")
	}

	if c.IsProduction() {
		if c.GeminiAPIKey == "" {
			log.Warn().Msg("GEMINI_API_KEY is empty in production: every evaluation will use fallback results")
		}
		if c.SandboxBackend == SandboxBackendProcess {
			log.Warn().Msg("SANDBOX_BACKEND=process in production: candidate code runs on the host")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
