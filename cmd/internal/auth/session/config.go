package session

import (
	"os"
	"strconv"
	"time"
)

// Config defines runtime configuration for the session subsystem.
//
// It controls the inactivity timeout (sliding expiry) and the entropy size of
// opaque session tokens. Explicit and environment-driven so production
// deployments can tune security parameters without code changes.
type Config struct {
	// Timeout is the maximum allowed inactivity between two validations.
	// A session is live iff now - last_activity <= Timeout.
	Timeout time.Duration

	// TokenBytes is the number of random bytes used to generate opaque
	// session tokens (32 bytes = 256 bits minimum).
	TokenBytes int
}

// DefaultConfig returns a secure default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    2 * time.Hour,
		TokenBytes: 32,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional:
//   - BACKOFFICE_SESSION_TIMEOUT (Go duration string, default 2h)
//   - BACKOFFICE_SESSION_TOKEN_BYTES (32..64, default 32)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("BACKOFFICE_SESSION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.Timeout = d
	}

	if v := os.Getenv("BACKOFFICE_SESSION_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.TokenBytes = n
	}

	return cfg, nil
}
