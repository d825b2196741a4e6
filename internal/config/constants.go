package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts. The request timeout must cover a full sandbox run
// (several 10s cases) plus an oracle round trip.
const (
	ServerRequestTimeout  = 90 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Request body ceiling. Code is capped at 50KB by the sandbox pre-screen,
// the rest is headroom for test cases and JSON framing.
const MaxRequestBodyBytes = 256 * 1024

// Oracle circuit breaker
const (
	OracleFailureThreshold = 5
	OracleCircuitReset     = 30 * time.Second
)

// Sandbox backends
const (
	SandboxBackendProcess = "process"
	SandboxBackendDocker  = "docker"
)

// Session starts allowed per client IP per minute.
const StartRateLimitPerMin = 10
