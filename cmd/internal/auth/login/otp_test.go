package login

import (
	"strings"
	"testing"
)

func TestNewOTPCode_Shape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := newOTPCode()
		if err != nil {
			t.Fatalf("newOTPCode: %v", err)
		}
		if len(code) != otpDigits {
			t.Fatalf("expected %d digits, got %q", otpDigits, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
		seen[code] = true
	}
	// 50 draws from a million-value space colliding down to a handful
	// of distinct codes would mean the generator is broken.
	if len(seen) < 10 {
		t.Fatalf("suspiciously few distinct codes: %d", len(seen))
	}
}

func TestNewOpaqueResetToken(t *testing.T) {
	plain, hash, err := newOpaqueResetToken(32)
	if err != nil {
		t.Fatalf("newOpaqueResetToken: %v", err)
	}
	if plain == "" {
		t.Fatalf("empty token")
	}
	if strings.ContainsAny(plain, "+/=") {
		t.Fatalf("token must be URL-safe, got %q", plain)
	}
	if len(hash) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(hash))
	}
	if hash != hashResetToken(plain) {
		t.Fatalf("hash must be deterministic")
	}

	plain2, hash2, err := newOpaqueResetToken(32)
	if err != nil {
		t.Fatalf("newOpaqueResetToken: %v", err)
	}
	if plain == plain2 || hash == hash2 {
		t.Fatalf("tokens must be unique")
	}
}

func TestNewOpaqueResetToken_DefaultSize(t *testing.T) {
	plain, _, err := newOpaqueResetToken(0)
	if err != nil {
		t.Fatalf("newOpaqueResetToken: %v", err)
	}
	// 32 bytes base64url without padding.
	if len(plain) != 43 {
		t.Fatalf("expected 43-char token for the default size, got %d", len(plain))
	}
}
