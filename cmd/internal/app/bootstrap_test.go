package app

import (
	"context"
	"strings"
	"testing"
)

func TestBootstrapAdmin_NoVariablesIsNoop(t *testing.T) {
	t.Parallel()

	log := NewLogger("error", "json")
	if err := bootstrapAdmin(context.Background(), Config{}, log, nil); err != nil {
		t.Fatalf("bootstrapAdmin with no variables: %v", err)
	}
}

func TestBootstrapAdmin_PartialVariablesFail(t *testing.T) {
	t.Parallel()

	log := NewLogger("error", "json")

	cases := []struct {
		name string
		cfg  Config
	}{
		{"username only", Config{BootstrapAdminUsername: "root"}},
		{"missing password", Config{BootstrapAdminUsername: "root", BootstrapAdminEmail: "root@example.com"}},
		{"password only", Config{BootstrapAdminPassword: "correct-horse-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := bootstrapAdmin(context.Background(), tc.cfg, log, nil)
			if err == nil {
				t.Fatal("expected an error for a partial bootstrap configuration")
			}
			if !strings.Contains(err.Error(), "must be set together") {
				t.Fatalf("error = %v, want the set-together message", err)
			}
		})
	}
}
