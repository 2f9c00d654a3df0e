package admin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements administrator persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Every mutation is a single-row UPDATE/INSERT; no cross-row transactions
//   are needed because no operation spans more than one logical entity.
// - Errors are mapped to admin sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "backoffice").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("admin: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("admin: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "backoffice",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("admin: nil pool")
	}
	return st, nil
}

const adminColumns = `
	id, username, email, is_active, created_at, password_changed_at,
	password_hash, failed_attempts, locked_until,
	otp_hash, otp_expires, reset_token_hash, reset_expires`

// Create inserts a new administrator row.
func (s *PostgresStore) Create(ctx context.Context, in CreateInput) (Administrator, error) {
	const op = "admin.Create"

	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)
	if username == "" || email == "" {
		return Administrator{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username and email are required"}
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return Administrator{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewULID(now)
	if err != nil {
		return Administrator{}, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+s.table("administrators")+` (
		     id, username, email, password_hash, is_active,
		     created_at, failed_attempts
		   ) VALUES ($1, $2, $3, $4, $5, $6, 0)`,
		id, username, email, in.PasswordHash, in.IsActive, now,
	)
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return Administrator{}, ConflictError{Op: op, Field: field}
		}
		return Administrator{}, err
	}

	return Administrator{
		ID:        id,
		Username:  username,
		Email:     email,
		IsActive:  in.IsActive,
		CreatedAt: now,
	}, nil
}

// GetByID loads the public administrator record.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Administrator, error) {
	const op = "admin.GetByID"

	var a Administrator
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, is_active, created_at, password_changed_at
		   FROM `+s.table("administrators")+`
		  WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Username, &a.Email, &a.IsActive, &a.CreatedAt, &a.PasswordChangedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Administrator{}, NotFoundError{Op: op, Resource: "administrator"}
	}
	if err != nil {
		return Administrator{}, err
	}
	return a, nil
}

// GetAuthByID loads authentication state by id.
func (s *PostgresStore) GetAuthByID(ctx context.Context, id string) (Auth, error) {
	const op = "admin.GetAuthByID"
	return s.getAuth(ctx, op, `id = $1`, id)
}

// GetAuthByResetToken loads authentication state by reset-token hash.
func (s *PostgresStore) GetAuthByResetToken(ctx context.Context, tokenHash string) (Auth, error) {
	const op = "admin.GetAuthByResetToken"
	if strings.TrimSpace(tokenHash) == "" {
		return Auth{}, NotFoundError{Op: op, Resource: "administrator"}
	}
	return s.getAuth(ctx, op, `reset_token_hash = $1`, tokenHash)
}

// GetAuthByUsername loads authentication state by case-sensitive exact match.
// Username lookup is deliberately NOT normalized: the login form must match
// the stored spelling exactly.
func (s *PostgresStore) GetAuthByUsername(ctx context.Context, username string) (Auth, error) {
	const op = "admin.GetAuthByUsername"
	return s.getAuth(ctx, op, `username = $1`, username)
}

// GetAuthByEmail loads authentication state by normalized email.
func (s *PostgresStore) GetAuthByEmail(ctx context.Context, email string) (Auth, error) {
	const op = "admin.GetAuthByEmail"
	return s.getAuth(ctx, op, `email = $1`, NormalizeEmail(email))
}

func (s *PostgresStore) getAuth(ctx context.Context, op, predicate string, arg any) (Auth, error) {
	var a Auth
	err := s.pool.QueryRow(ctx,
		`SELECT `+adminColumns+`
		   FROM `+s.table("administrators")+`
		  WHERE `+predicate,
		arg,
	).Scan(
		&a.ID, &a.Username, &a.Email, &a.IsActive, &a.CreatedAt, &a.PasswordChangedAt,
		&a.PasswordHash, &a.FailedAttempts, &a.LockedUntil,
		&a.OTPHash, &a.OTPExpires, &a.ResetTokenHash, &a.ResetExpires,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Auth{}, NotFoundError{Op: op, Resource: "administrator"}
	}
	if err != nil {
		return Auth{}, err
	}
	return a, nil
}

// SetOTP overwrites the one-time-code slot. Last writer wins: two concurrent
// credential submissions leave only the most recently issued code valid.
func (s *PostgresStore) SetOTP(ctx context.Context, adminID string, otpHash string, expires time.Time) error {
	return s.updateOne(ctx, "admin.SetOTP",
		`UPDATE `+s.table("administrators")+`
		    SET otp_hash = $2, otp_expires = $3
		  WHERE id = $1`,
		adminID, otpHash, expires)
}

// ClearOTP empties the one-time-code slot.
func (s *PostgresStore) ClearOTP(ctx context.Context, adminID string) error {
	return s.updateOne(ctx, "admin.ClearOTP",
		`UPDATE `+s.table("administrators")+`
		    SET otp_hash = NULL, otp_expires = NULL
		  WHERE id = $1`,
		adminID)
}

// RecordLoginFailure increments failed_attempts in a single statement and
// applies the lockout threshold atomically against the incremented value.
func (s *PostgresStore) RecordLoginFailure(ctx context.Context, adminID string, now time.Time, lockThreshold int, lockFor time.Duration) error {
	if lockThreshold <= 0 {
		return s.updateOne(ctx, "admin.RecordLoginFailure",
			`UPDATE `+s.table("administrators")+`
			    SET failed_attempts = failed_attempts + 1
			  WHERE id = $1`,
			adminID)
	}
	return s.updateOne(ctx, "admin.RecordLoginFailure",
		`UPDATE `+s.table("administrators")+`
		    SET failed_attempts = failed_attempts + 1,
		        locked_until = CASE
		          WHEN failed_attempts + 1 >= $2 THEN $3::timestamptz
		          ELSE locked_until
		        END
		  WHERE id = $1`,
		adminID, lockThreshold, now.Add(lockFor))
}

// ResetLoginFailures zeroes the counter and clears any lockout.
func (s *PostgresStore) ResetLoginFailures(ctx context.Context, adminID string) error {
	return s.updateOne(ctx, "admin.ResetLoginFailures",
		`UPDATE `+s.table("administrators")+`
		    SET failed_attempts = 0, locked_until = NULL
		  WHERE id = $1`,
		adminID)
}

// SetResetToken overwrites the password-reset slot.
func (s *PostgresStore) SetResetToken(ctx context.Context, adminID string, tokenHash string, expires time.Time) error {
	return s.updateOne(ctx, "admin.SetResetToken",
		`UPDATE `+s.table("administrators")+`
		    SET reset_token_hash = $2, reset_expires = $3
		  WHERE id = $1`,
		adminID, tokenHash, expires)
}

// ClearResetToken empties the password-reset slot.
func (s *PostgresStore) ClearResetToken(ctx context.Context, adminID string) error {
	return s.updateOne(ctx, "admin.ClearResetToken",
		`UPDATE `+s.table("administrators")+`
		    SET reset_token_hash = NULL, reset_expires = NULL
		  WHERE id = $1`,
		adminID)
}

// UpdatePassword replaces the password hash, stamps password_changed_at and
// clears the reset slot (single-use enforcement for reset tokens).
func (s *PostgresStore) UpdatePassword(ctx context.Context, adminID string, passwordHash string, now time.Time) error {
	if strings.TrimSpace(passwordHash) == "" {
		return OpError{Op: "admin.UpdatePassword", Kind: ErrInvalidInput, Msg: "empty password hash"}
	}
	return s.updateOne(ctx, "admin.UpdatePassword",
		`UPDATE `+s.table("administrators")+`
		    SET password_hash = $2,
		        password_changed_at = $3,
		        reset_token_hash = NULL,
		        reset_expires = NULL
		  WHERE id = $1`,
		adminID, passwordHash, now)
}

// UpdateProfile changes username and/or email. nil keeps the current value.
func (s *PostgresStore) UpdateProfile(ctx context.Context, adminID string, username, email *string) (Administrator, error) {
	const op = "admin.UpdateProfile"

	if username == nil && email == nil {
		return Administrator{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nothing to update"}
	}

	var uname, mail *string
	if username != nil {
		v := strings.TrimSpace(*username)
		if v == "" {
			return Administrator{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty username"}
		}
		uname = &v
	}
	if email != nil {
		v := NormalizeEmail(*email)
		if v == "" {
			return Administrator{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty email"}
		}
		mail = &v
	}

	var a Administrator
	err := s.pool.QueryRow(ctx,
		`UPDATE `+s.table("administrators")+`
		    SET username = COALESCE($2, username),
		        email = COALESCE($3, email)
		  WHERE id = $1
		  RETURNING id, username, email, is_active, created_at, password_changed_at`,
		adminID, uname, mail,
	).Scan(&a.ID, &a.Username, &a.Email, &a.IsActive, &a.CreatedAt, &a.PasswordChangedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Administrator{}, NotFoundError{Op: op, Resource: "administrator"}
	}
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return Administrator{}, ConflictError{Op: op, Field: field}
		}
		return Administrator{}, err
	}
	return a, nil
}

func (s *PostgresStore) updateOne(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "administrator"}
	}
	return nil
}

func (s *PostgresStore) table(name string) string {
	return `"` + s.schema + `"."` + name + `"`
}

func classifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return "username", true
	case strings.Contains(pgErr.ConstraintName, "email"):
		return "email", true
	default:
		return "", true
	}
}
