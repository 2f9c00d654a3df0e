package session

import (
	"context"
	"net"
	"time"
)

// Row mirrors the backoffice.sessions row.
type Row struct {
	ID           string
	AdminID      string
	TokenHash    string
	IP           net.IP
	UserAgent    *string
	CreatedAt    time.Time
	LastActivity time.Time
}

// Store abstracts persistence for session state.
//
// Implementations must keep deletes atomic at the row level: a session either
// fully exists or is fully gone, never a partial state a concurrent validate
// could observe.
type Store interface {
	// Create inserts a new session row keyed by tokenHash.
	Create(ctx context.Context, now time.Time, adminID string, ip net.IP, userAgent string, tokenHash string) (Row, error)

	// GetByTokenHash loads a session row by token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (Row, error)

	// Touch updates last_activity for a session (sliding expiry).
	Touch(ctx context.Context, now time.Time, sessionID string) error

	// ListByAdmin returns all session rows for an administrator, newest
	// activity first, regardless of liveness.
	ListByAdmin(ctx context.Context, adminID string) ([]Row, error)

	// DeleteByTokenHash deletes exactly one session row (idempotent).
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteByID deletes one session row scoped to its owner (idempotent).
	DeleteByID(ctx context.Context, adminID, sessionID string) error

	// DeleteOthers deletes every session row for the administrator except
	// the one matching keepTokenHash, in a single statement.
	DeleteOthers(ctx context.Context, adminID, keepTokenHash string) (int64, error)

	// DeleteAllByAdmin deletes every session row for the administrator.
	DeleteAllByAdmin(ctx context.Context, adminID string) (int64, error)
}
