package admin

import (
	"errors"

	"backoffice/cmd/security/password"
)

// HashPassword returns a PHC-style Argon2id hash string using the env-driven
// password configuration. cmd/security/password is the single source of truth
// for parameters and policy; admin must not drift from it.
func HashPassword(plain string) (string, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		// Invalid env is an operational error, not a weak fallback.
		return "", err
	}
	return cfg.Hash(plain)
}

// VerifyPassword checks a password against a PHC Argon2id hash.
// Strict PHC parsing; verification refuses hashes with parameters wildly
// above configured maxima.
func VerifyPassword(plain string, encodedPHC string) (bool, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return false, err
	}

	ok, err := cfg.Verify(encodedPHC, plain)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			return false, errors.New("invalid argon2id hash format")
		}
		return false, err
	}
	return ok, nil
}
