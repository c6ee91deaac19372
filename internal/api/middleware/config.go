// Package middleware provides HTTP middleware components for the VaxTrack API.
package middleware

import (
	"time"

	"github.com/vaxtrack-io/vaxtrack/internal/config"
)

// Config holds rate limiter configuration.
//
// Rate limits specify requests per second (RPS) for three tiers:
//   - Global: Applied to all requests
//   - Per-caller: Applied to requests carrying a caller identity
//   - Anonymous: Applied to requests without a caller identity
//
// Burst capacity allows temporary bursts above sustained rate.
// If burst fields are 0, they are computed automatically as 2 × rate.
type Config struct {
	// Rate limits (requests per second)
	GlobalRPS int // Default: 100
	CallerRPS int // Default: 25
	UnAuthRPS int // Default: 10

	// Optional burst capacity overrides (0 = compute automatically as 2 × rate) using computeBurstCapacity()
	GlobalBurst int // Default: 0 (computed as 2 × GlobalRPS = 200)
	CallerBurst int // Default: 0 (computed as 2 × CallerRPS = 50)
	UnAuthBurst int // Default: 0 (computed as 2 × UnAuthRPS = 20)

	// Memory cleanup configuration
	CleanupInterval time.Duration // Default: 5 minutes
	IdleTimeout     time.Duration // Default: 1 hour
	MaxCallers      int           // Default: 1,000
}

// LoadConfig loads middleware config from environment variables with fallback to defaults.
//
// Default burst capacity: 2 × rate (allows 2-second burst)
// Default cleanup: every 5 minutes, removes callers idle >1 hour
// Default max callers: 1,000 (prevents unbounded memory growth).
func LoadConfig() *Config {
	return &Config{
		// Rate limits
		GlobalRPS: config.GetEnvInt("VAXTRACK_GLOBAL_RPS", defaultGlobalRPS),
		CallerRPS: config.GetEnvInt("VAXTRACK_CALLER_RPS", defaultCallerRPS),
		UnAuthRPS: config.GetEnvInt("VAXTRACK_UNAUTH_RPS", defaultUnAuthRPS),

		// Burst overrides (0 = auto-compute)
		GlobalBurst: config.GetEnvInt("VAXTRACK_GLOBAL_BURST", 0),
		CallerBurst: config.GetEnvInt("VAXTRACK_CALLER_BURST", 0),
		UnAuthBurst: config.GetEnvInt("VAXTRACK_UNAUTH_BURST", 0),

		// Cleanup configuration
		CleanupInterval: config.GetEnvDuration(
			"VAXTRACK_RATE_LIMIT_CLEANUP_INTERVAL", rateLimiterCleanupInterval,
		),
		IdleTimeout: config.GetEnvDuration("VAXTRACK_RATE_LIMIT_IDLE_TIMEOUT", rateLimiterIdleTimeout),
		MaxCallers:  config.GetEnvInt("VAXTRACK_RATE_LIMIT_MAX_CALLERS", maxCallers),
	}
}
