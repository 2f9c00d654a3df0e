package login

import "errors"

var (
	// ErrMissingInput is returned for empty username, password or code.
	ErrMissingInput = errors.New("missing input")

	// ErrVerificationFailed is returned when the human-verification token is
	// missing or rejected by the verifier. The credential check never runs.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrInvalidCredentials covers unknown username, inactive account, locked
	// account and wrong password alike. The caller must not be able to tell
	// which one occurred.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoPendingLogin is returned when a code is submitted without an
	// outstanding credential check; the caller restarts from the beginning.
	ErrNoPendingLogin = errors.New("no pending login")

	// ErrOTPExpired is returned when the one-time-code slot is empty or past
	// its expiry. A fresh code requires restarting login or using resend.
	ErrOTPExpired = errors.New("one-time code expired")

	// ErrOTPIncorrect is returned when the submitted code does not match the
	// stored hash.
	ErrOTPIncorrect = errors.New("one-time code incorrect")

	// ErrResetInvalid is returned for unknown or expired password-reset tokens.
	ErrResetInvalid = errors.New("reset token invalid or expired")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
