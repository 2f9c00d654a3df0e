package session

import "errors"

var (
	// ErrSessionNotFound is returned when a token does not match any session row.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the session exists but has been
	// inactive longer than the configured timeout.
	ErrSessionExpired = errors.New("session expired")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
