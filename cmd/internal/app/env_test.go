package app

import (
	"testing"
	"time"
)

func TestEnvString(t *testing.T) {
	t.Setenv("BACKOFFICE_TEST_STR", "")
	if got := EnvString("BACKOFFICE_TEST_STR", "fallback"); got != "fallback" {
		t.Fatalf("EnvString empty = %q", got)
	}
	t.Setenv("BACKOFFICE_TEST_STR", "  value  ")
	if got := EnvString("BACKOFFICE_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("EnvString set = %q", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("BACKOFFICE_TEST_BOOL", "")
	if got := EnvBool("BACKOFFICE_TEST_BOOL", true); !got {
		t.Fatalf("expected default true")
	}
	t.Setenv("BACKOFFICE_TEST_BOOL", "false")
	if got := EnvBool("BACKOFFICE_TEST_BOOL", true); got {
		t.Fatalf("expected false")
	}
	t.Setenv("BACKOFFICE_TEST_BOOL", "not-a-bool")
	if got := EnvBool("BACKOFFICE_TEST_BOOL", true); !got {
		t.Fatalf("invalid value must fall back to default")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("BACKOFFICE_TEST_INT", "")
	if got := EnvInt("BACKOFFICE_TEST_INT", 7); got != 7 {
		t.Fatalf("expected default, got %d", got)
	}
	t.Setenv("BACKOFFICE_TEST_INT", "42")
	if got := EnvInt("BACKOFFICE_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("BACKOFFICE_TEST_INT", "-1")
	if got := EnvInt("BACKOFFICE_TEST_INT", 7); got != 7 {
		t.Fatalf("non-positive must fall back, got %d", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("BACKOFFICE_TEST_DUR", "")
	if got := EnvDuration("BACKOFFICE_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("expected default, got %v", got)
	}
	t.Setenv("BACKOFFICE_TEST_DUR", "90s")
	if got := EnvDuration("BACKOFFICE_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	t.Setenv("BACKOFFICE_TEST_DUR", "soon")
	if got := EnvDuration("BACKOFFICE_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("invalid must fall back, got %v", got)
	}
}
