package admin

import (
	"context"
	"strings"
	"time"

	"backoffice/cmd/admin/ids"
)

// Administrator is the back office's security principal.
type Administrator struct {
	ID       string
	Username string
	Email    string
	IsActive bool

	CreatedAt         time.Time
	PasswordChangedAt *time.Time
}

// Auth carries the full authentication state of an administrator row.
// IMPORTANT: all secret fields hold Argon2id hashes; plaintext passwords,
// one-time codes and reset tokens are never persisted.
type Auth struct {
	Administrator

	PasswordHash string

	FailedAttempts int
	LockedUntil    *time.Time

	// Single one-time-code slot. Overwritten on every issuance
	// (last-write-wins), cleared on successful consumption.
	OTPHash    *string
	OTPExpires *time.Time

	// Single password-reset slot, same single-use contract as the OTP slot.
	ResetTokenHash *string
	ResetExpires   *time.Time
}

// Locked reports whether the account is under an active lockout at now.
func (a Auth) Locked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// CreateInput describes a new administrator account.
type CreateInput struct {
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	Now          time.Time
}

// Store is the administrator persistence boundary.
//
// Every mutation is a single-row statement; the datastore's native row
// atomicity is the only synchronization this subsystem relies on.
type Store interface {
	Create(ctx context.Context, in CreateInput) (Administrator, error)

	// GetByID loads the public administrator record.
	GetByID(ctx context.Context, id string) (Administrator, error)

	// GetAuthByID loads authentication state by id.
	GetAuthByID(ctx context.Context, id string) (Auth, error)

	// GetAuthByUsername loads authentication state by case-sensitive exact
	// username match.
	GetAuthByUsername(ctx context.Context, username string) (Auth, error)

	// GetAuthByEmail loads authentication state by normalized email
	// (used by the password-reset flow).
	GetAuthByEmail(ctx context.Context, email string) (Auth, error)

	// SetOTP overwrites the one-time-code slot (hash + expiry).
	SetOTP(ctx context.Context, adminID string, otpHash string, expires time.Time) error

	// ClearOTP empties the one-time-code slot (single-use enforcement).
	ClearOTP(ctx context.Context, adminID string) error

	// RecordLoginFailure increments failed_attempts and, when lockThreshold > 0
	// and the new count reaches it, sets locked_until = now + lockFor.
	RecordLoginFailure(ctx context.Context, adminID string, now time.Time, lockThreshold int, lockFor time.Duration) error

	// ResetLoginFailures zeroes failed_attempts and clears locked_until.
	ResetLoginFailures(ctx context.Context, adminID string) error

	// SetResetToken overwrites the password-reset slot (hash + expiry).
	SetResetToken(ctx context.Context, adminID string, tokenHash string, expires time.Time) error

	// GetAuthByResetToken loads authentication state by reset-token hash.
	GetAuthByResetToken(ctx context.Context, tokenHash string) (Auth, error)

	// ClearResetToken empties the password-reset slot.
	ClearResetToken(ctx context.Context, adminID string) error

	// UpdatePassword replaces the password hash, stamps password_changed_at
	// and clears the reset slot.
	UpdatePassword(ctx context.Context, adminID string, passwordHash string, now time.Time) error

	// UpdateProfile changes username and/or email (nil = keep current).
	// Uniqueness conflicts map to ConflictError.
	UpdateProfile(ctx context.Context, adminID string, username, email *string) (Administrator, error)
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewULID returns a new ULID (26-char string).
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
