package mail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Required(t *testing.T) {
	t.Setenv("BACKOFFICE_SMTP_HOST", "")
	t.Setenv("BACKOFFICE_SMTP_FROM", "")

	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig without host, got %v", err)
	}

	t.Setenv("BACKOFFICE_SMTP_HOST", "smtp.example.com")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig without from address, got %v", err)
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("BACKOFFICE_SMTP_HOST", "smtp.example.com")
	t.Setenv("BACKOFFICE_SMTP_FROM", "no-reply@example.com")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Port != 587 || !cfg.UseStartTLS || cfg.UseTLS {
		t.Fatalf("unexpected transport defaults: %+v", cfg)
	}
	if cfg.Timeout != 30*time.Second || cfg.RetryAttempts != 3 {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("BACKOFFICE_SMTP_HOST", "smtp.example.com")
	t.Setenv("BACKOFFICE_SMTP_FROM", "no-reply@example.com")
	t.Setenv("BACKOFFICE_SMTP_PORT", "465")
	t.Setenv("BACKOFFICE_SMTP_TLS", "true")
	t.Setenv("BACKOFFICE_SMTP_STARTTLS", "false")
	t.Setenv("BACKOFFICE_RESET_URL_BASE", "https://admin.example.com/reset-password/")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Port != 465 || !cfg.UseTLS || cfg.UseStartTLS {
		t.Fatalf("unexpected transport config: %+v", cfg)
	}
	if cfg.ResetURLBase != "https://admin.example.com/reset-password" {
		t.Fatalf("trailing slash must be stripped, got %q", cfg.ResetURLBase)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "BACKOFFICE_SMTP_PORT", "smtp"},
		{"port out of range", "BACKOFFICE_SMTP_PORT", "70000"},
		{"bad tls bool", "BACKOFFICE_SMTP_TLS", "maybe"},
		{"bad timeout", "BACKOFFICE_SMTP_TIMEOUT", "soon"},
		{"zero retries", "BACKOFFICE_SMTP_RETRY_ATTEMPTS", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("BACKOFFICE_SMTP_HOST", "smtp.example.com")
			t.Setenv("BACKOFFICE_SMTP_FROM", "no-reply@example.com")
			t.Setenv(tc.key, tc.value)
			if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestBuildMessage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "smtp.example.com"
	cfg.FromAddress = "no-reply@example.com"
	cfg.FromName = "Back Office"
	m := NewSMTPMailer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	msg := m.buildMessage("alice@example.com", "Your sign-in code", "line one\nline two")

	header, body, found := strings.Cut(msg, "\r\n\r\n")
	if !found {
		t.Fatalf("missing header/body separator")
	}
	for _, want := range []string{
		"From: Back Office <no-reply@example.com>",
		"To: alice@example.com",
		"Subject: Your sign-in code",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
	} {
		if !strings.Contains(header, want) {
			t.Fatalf("header missing %q in:\n%s", want, header)
		}
	}
	if body != "line one\r\nline two" {
		t.Fatalf("body must use CRLF, got %q", body)
	}
}

func TestBuildMessage_NoFromName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FromAddress = "no-reply@example.com"
	cfg.FromName = ""
	m := NewSMTPMailer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	msg := m.buildMessage("alice@example.com", "s", "b")
	if !strings.Contains(msg, "From: no-reply@example.com\r\n") {
		t.Fatalf("bare from address expected, got:\n%s", msg)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"auth rejection", errors.New("535 5.7.8 authentication failed"), false},
		{"policy rejection", errors.New("550 5.7.1 unauthorized relay"), false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"temporary failure", errors.New("451 4.3.0 temporary local problem"), true},
		{"unknown host", errors.New("lookup smtp: no such host"), true},
		{"generic", errors.New("broken pipe"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryable(tc.err); got != tc.want {
				t.Fatalf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
