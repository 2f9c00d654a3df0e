package login

import (
	"os"
	"strconv"
	"time"
)

// Config defines runtime configuration for the login sequencer.
type Config struct {
	// OTPTTL is the validity window of an emailed one-time code.
	OTPTTL time.Duration

	// ResetTokenTTL is the validity window of a password-reset token.
	ResetTokenTTL time.Duration

	// DelayMin/DelayMax bound the uniform random delay inserted before every
	// credential response (timing side-channel mitigation). DelayMax = 0
	// disables the delay (tests).
	DelayMin time.Duration
	DelayMax time.Duration

	// LockoutThreshold is the number of consecutive password failures that
	// triggers a lockout; 0 disables lockout. LockoutDuration is how long the
	// account stays locked.
	LockoutThreshold int
	LockoutDuration  time.Duration

	// PendingKeyHex is the hex-encoded 32-byte symmetric key for the PASETO
	// v4.local pending-login cookie.
	PendingKeyHex string
}

// DefaultConfig returns defaults suitable for development.
func DefaultConfig() Config {
	return Config{
		OTPTTL:           5 * time.Minute,
		ResetTokenTTL:    30 * time.Minute,
		DelayMin:         150 * time.Millisecond,
		DelayMax:         450 * time.Millisecond,
		LockoutThreshold: 5,
		LockoutDuration:  15 * time.Minute,
	}
}

// LoadConfigFromEnv loads sequencer configuration from environment variables.
//
// Required:
//   - BACKOFFICE_PENDING_KEY_HEX (64 hex chars)
//
// Optional (durations must be valid Go duration strings):
//   - BACKOFFICE_OTP_TTL
//   - BACKOFFICE_RESET_TOKEN_TTL
//   - BACKOFFICE_LOGIN_DELAY_MIN
//   - BACKOFFICE_LOGIN_DELAY_MAX
//   - BACKOFFICE_LOGIN_LOCKOUT_THRESHOLD (0 disables)
//   - BACKOFFICE_LOGIN_LOCKOUT_DURATION
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("BACKOFFICE_OTP_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.OTPTTL = d
	}

	if v := os.Getenv("BACKOFFICE_RESET_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.ResetTokenTTL = d
	}

	if v := os.Getenv("BACKOFFICE_LOGIN_DELAY_MIN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.DelayMin = d
	}

	if v := os.Getenv("BACKOFFICE_LOGIN_DELAY_MAX"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.DelayMax = d
	}

	if v := os.Getenv("BACKOFFICE_LOGIN_LOCKOUT_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, ErrConfig
		}
		cfg.LockoutThreshold = n
	}

	if v := os.Getenv("BACKOFFICE_LOGIN_LOCKOUT_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.LockoutDuration = d
	}

	cfg.PendingKeyHex = os.Getenv("BACKOFFICE_PENDING_KEY_HEX")
	if cfg.PendingKeyHex == "" {
		return Config{}, ErrConfig
	}

	if cfg.DelayMax > 0 && cfg.DelayMin > cfg.DelayMax {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
