package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Per-IP throttle for failed logins, counted from the audit log.
	LoginIPMax    int
	LoginIPWindow time.Duration

	EnableCaptcha bool

	SessionCookieName string
	PendingCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:        envBool("BACKOFFICE_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:      envInt64("BACKOFFICE_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		LoginIPMax:        envInt("BACKOFFICE_AUTH_LOGIN_IP_MAX", 20),
		LoginIPWindow:     envDuration("BACKOFFICE_AUTH_LOGIN_IP_WINDOW", 5*time.Minute),
		EnableCaptcha:     envBool("BACKOFFICE_AUTH_CAPTCHA", false),
		SessionCookieName: envString("BACKOFFICE_AUTH_SESSION_COOKIE", "backoffice_session"),
		PendingCookieName: envString("BACKOFFICE_AUTH_PENDING_COOKIE", "backoffice_pending"),
		CookiePath:        envString("BACKOFFICE_AUTH_COOKIE_PATH", "/"),
		CookieDomain:      os.Getenv("BACKOFFICE_AUTH_COOKIE_DOMAIN"),
		CookieSecure:      envBool("BACKOFFICE_AUTH_COOKIE_SECURE", true),
		CookieSameSite:    http.SameSiteStrictMode,
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv("BACKOFFICE_AUTH_COOKIE_SAMESITE"))) {
	case "", "strict":
		cfg.CookieSameSite = http.SameSiteStrictMode
	case "lax":
		cfg.CookieSameSite = http.SameSiteLaxMode
	case "none":
		cfg.CookieSameSite = http.SameSiteNoneMode
	}

	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
