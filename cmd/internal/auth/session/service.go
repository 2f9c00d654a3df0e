package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Service implements the high-level session operations for the back office.
//
// It creates sessions (opaque token + Postgres row), validates tokens with
// sliding inactivity expiry, and supports targeted and bulk revocation.
type Service struct {
	cfg   Config
	store Store
}

// Created is the result of creating a session. Token is the plain opaque
// token; it must be handed to the client exactly once and never logged.
type Created struct {
	Token   string
	Session Row
}

// NewService constructs a Service with the provided configuration and store.
func NewService(cfg Config, store Store) *Service {
	return &Service{cfg: cfg, store: store}
}

// Timeout exposes the configured inactivity timeout.
func (s *Service) Timeout() time.Duration { return s.cfg.Timeout }

// Create generates an opaque token, persists a session row for it and
// returns the plain token. If the write fails, no token is returned and the
// caller must not consider the administrator authenticated.
func (s *Service) Create(ctx context.Context, now time.Time, adminID string, ip net.IP, userAgent string) (Created, error) {
	plain, hash, err := newOpaqueSessionToken(s.cfg.TokenBytes)
	if err != nil {
		return Created{}, err
	}

	row, err := s.store.Create(ctx, now, adminID, ip, userAgent, hash)
	if err != nil {
		return Created{}, err
	}

	return Created{Token: plain, Session: row}, nil
}

// Validate checks the token against the store and the inactivity timeout.
//
// On success it slides last_activity to now and returns the session row.
// On failure it returns ErrSessionNotFound, ErrSessionExpired or a wrapped
// store error, and performs no mutation; callers must treat any error as
// "not authenticated".
func (s *Service) Validate(ctx context.Context, now time.Time, token string) (Row, error) {
	token = strings.TrimSpace(token)
	// Sanity bounds to avoid hashing pathological inputs.
	if token == "" || len(token) > 512 {
		return Row{}, ErrSessionNotFound
	}

	row, err := s.store.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Row{}, ErrSessionNotFound
		}
		return Row{}, fmt.Errorf("session validate: %w", err)
	}

	if now.Sub(row.LastActivity) > s.cfg.Timeout {
		return Row{}, ErrSessionExpired
	}

	if err := s.store.Touch(ctx, now, row.ID); err != nil {
		return Row{}, fmt.Errorf("session validate: %w", err)
	}
	row.LastActivity = now

	return row, nil
}

// List returns all sessions for an administrator, newest activity first,
// regardless of liveness. Which row is "current" is the caller's concern; use
// IsCurrent with the caller's own token.
func (s *Service) List(ctx context.Context, adminID string) ([]Row, error) {
	return s.store.ListByAdmin(ctx, adminID)
}

// IsCurrent reports whether row belongs to the given plain token.
func (s *Service) IsCurrent(row Row, token string) bool {
	return row.TokenHash == hashToken(token)
}

// Revoke deletes the session matching the token. Idempotent: revoking an
// unknown token is not an error.
func (s *Service) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.store.DeleteByTokenHash(ctx, hashToken(token))
}

// RevokeByID deletes one session scoped to its owner (used by the session
// management surface). Idempotent.
func (s *Service) RevokeByID(ctx context.Context, adminID, sessionID string) error {
	return s.store.DeleteByID(ctx, adminID, sessionID)
}

// RevokeOthers deletes every session of the administrator except the one
// matching currentToken ("log out all other devices"). Returns the number of
// sessions removed.
func (s *Service) RevokeOthers(ctx context.Context, adminID, currentToken string) (int64, error) {
	return s.store.DeleteOthers(ctx, adminID, hashToken(currentToken))
}

// RevokeAll deletes every session of the administrator.
func (s *Service) RevokeAll(ctx context.Context, adminID string) (int64, error) {
	return s.store.DeleteAllByAdmin(ctx, adminID)
}
