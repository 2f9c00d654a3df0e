package session

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store using PostgreSQL (backoffice.sessions).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new session row and returns it.
func (s *PostgresStore) Create(ctx context.Context, now time.Time, adminID string, ip net.IP, userAgent string, tokenHash string) (Row, error) {
	id := ulid.Make().String()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO backoffice.sessions (
			id, admin_id, token_hash, ip, user_agent, created_at, last_activity
		) VALUES (
			$1, $2, $3, $4, $5, $6, $6
		)
	`, id, adminID, tokenHash, ip, nullIfEmpty(userAgent), now)
	if err != nil {
		return Row{}, err
	}

	row := Row{
		ID:           id,
		AdminID:      adminID,
		TokenHash:    tokenHash,
		IP:           ip,
		CreatedAt:    now,
		LastActivity: now,
	}
	if userAgent != "" {
		row.UserAgent = &userAgent
	}
	return row, nil
}

// GetByTokenHash loads a session row by token hash.
func (s *PostgresStore) GetByTokenHash(ctx context.Context, tokenHash string) (Row, error) {
	var row Row

	err := s.pool.QueryRow(ctx, `
		SELECT id, admin_id, token_hash, ip, user_agent, created_at, last_activity
		FROM backoffice.sessions
		WHERE token_hash = $1
	`, tokenHash).Scan(
		&row.ID,
		&row.AdminID,
		&row.TokenHash,
		&row.IP,
		&row.UserAgent,
		&row.CreatedAt,
		&row.LastActivity,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrSessionNotFound
	}
	if err != nil {
		return Row{}, err
	}

	return row, nil
}

// Touch updates last_activity for a session.
func (s *PostgresStore) Touch(ctx context.Context, now time.Time, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE backoffice.sessions
		SET last_activity = $2
		WHERE id = $1
	`, sessionID, now)
	return err
}

// ListByAdmin returns all sessions for an administrator, newest activity first.
func (s *PostgresStore) ListByAdmin(ctx context.Context, adminID string) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, admin_id, token_hash, ip, user_agent, created_at, last_activity
		FROM backoffice.sessions
		WHERE admin_id = $1
		ORDER BY last_activity DESC
	`, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.ID,
			&row.AdminID,
			&row.TokenHash,
			&row.IP,
			&row.UserAgent,
			&row.CreatedAt,
			&row.LastActivity,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteByTokenHash deletes one session row (idempotent).
func (s *PostgresStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM backoffice.sessions
		WHERE token_hash = $1
	`, tokenHash)
	return err
}

// DeleteByID deletes one session row scoped to its owner (idempotent).
func (s *PostgresStore) DeleteByID(ctx context.Context, adminID, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM backoffice.sessions
		WHERE admin_id = $1 AND id = $2
	`, adminID, sessionID)
	return err
}

// DeleteOthers deletes all sessions for an administrator except the current
// one. A single DELETE keeps the operation atomic with respect to concurrent
// validations.
func (s *PostgresStore) DeleteOthers(ctx context.Context, adminID, keepTokenHash string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM backoffice.sessions
		WHERE admin_id = $1 AND token_hash <> $2
	`, adminID, keepTokenHash)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAllByAdmin deletes every session for an administrator (used after a
// password reset).
func (s *PostgresStore) DeleteAllByAdmin(ctx context.Context, adminID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM backoffice.sessions
		WHERE admin_id = $1
	`, adminID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
