package mail

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrConfig is returned for invalid mailer configuration.
var ErrConfig = errors.New("invalid mail config")

// Config holds SMTP delivery settings.
type Config struct {
	Host string
	Port int

	Username string
	Password string

	FromAddress string
	FromName    string

	// UseTLS dials an implicit-TLS port (465). Otherwise the connection is
	// plain with STARTTLS negotiated when UseStartTLS is set (587).
	UseTLS      bool
	UseStartTLS bool

	Timeout       time.Duration
	RetryAttempts int

	// ResetURLBase is the front-end path reset tokens are appended to,
	// e.g. "https://admin.example.com/reset-password".
	ResetURLBase string
}

// DefaultConfig returns submission-port defaults.
func DefaultConfig() Config {
	return Config{
		Port:          587,
		UseStartTLS:   true,
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		FromName:      "Back Office",
	}
}

// LoadConfigFromEnv loads SMTP configuration from environment variables.
//
// Required:
//   - BACKOFFICE_SMTP_HOST
//   - BACKOFFICE_SMTP_FROM
//
// Optional:
//   - BACKOFFICE_SMTP_PORT (default 587)
//   - BACKOFFICE_SMTP_USERNAME / BACKOFFICE_SMTP_PASSWORD
//   - BACKOFFICE_SMTP_FROM_NAME
//   - BACKOFFICE_SMTP_TLS ("true" for implicit TLS, port 465)
//   - BACKOFFICE_SMTP_STARTTLS (default "true")
//   - BACKOFFICE_SMTP_TIMEOUT / BACKOFFICE_SMTP_RETRY_ATTEMPTS
//   - BACKOFFICE_RESET_URL_BASE
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.Host = strings.TrimSpace(os.Getenv("BACKOFFICE_SMTP_HOST"))
	if cfg.Host == "" {
		return Config{}, ErrConfig
	}
	cfg.FromAddress = strings.TrimSpace(os.Getenv("BACKOFFICE_SMTP_FROM"))
	if cfg.FromAddress == "" {
		return Config{}, ErrConfig
	}

	if v := os.Getenv("BACKOFFICE_SMTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return Config{}, ErrConfig
		}
		cfg.Port = n
	}

	cfg.Username = os.Getenv("BACKOFFICE_SMTP_USERNAME")
	cfg.Password = os.Getenv("BACKOFFICE_SMTP_PASSWORD")

	if v := os.Getenv("BACKOFFICE_SMTP_FROM_NAME"); v != "" {
		cfg.FromName = v
	}

	if v := os.Getenv("BACKOFFICE_SMTP_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.UseTLS = b
	}
	if v := os.Getenv("BACKOFFICE_SMTP_STARTTLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.UseStartTLS = b
	}

	if v := os.Getenv("BACKOFFICE_SMTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("BACKOFFICE_SMTP_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 10 {
			return Config{}, ErrConfig
		}
		cfg.RetryAttempts = n
	}

	cfg.ResetURLBase = strings.TrimRight(os.Getenv("BACKOFFICE_RESET_URL_BASE"), "/")

	return cfg, nil
}
