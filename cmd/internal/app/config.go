package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy: if true, BACKOFFICE_TOKEN_HMAC_KEY MUST be set
	// (>= 32 bytes) and session-token hashing must be HMAC-based.
	RequireTokenHMAC bool

	// If true, SMTP delivery is configured from env; otherwise one-time codes
	// and reset links are dropped by a no-op sender (development only).
	MailEnabled bool

	// First-admin seeding. When all three are set and the database is
	// enabled, the account is created at startup if it does not exist.
	// Setting only some of them is a configuration error.
	BootstrapAdminUsername string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("BACKOFFICE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("BACKOFFICE_LOG_LEVEL", "info"),
		LogFormat: EnvString("BACKOFFICE_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("BACKOFFICE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BACKOFFICE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BACKOFFICE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BACKOFFICE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("BACKOFFICE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("BACKOFFICE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("BACKOFFICE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("BACKOFFICE_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("BACKOFFICE_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("BACKOFFICE_REQUIRE_TOKEN_HMAC", false),

		MailEnabled: EnvBool("BACKOFFICE_MAIL_ENABLED", false),

		BootstrapAdminUsername: EnvString("BACKOFFICE_BOOTSTRAP_ADMIN_USERNAME", ""),
		BootstrapAdminEmail:    EnvString("BACKOFFICE_BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: EnvString("BACKOFFICE_BOOTSTRAP_ADMIN_PASSWORD", ""),
	}
}
