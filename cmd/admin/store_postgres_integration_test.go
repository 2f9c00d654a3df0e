package admin

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgresStore_CreateAndLookup(t *testing.T) {
	pool := mustOpenAdminTestPool(t)
	defer pool.Close()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	ctx := context.Background()
	username, email := newTestIdentity(t)
	now := time.Now().UTC()

	created, err := store.Create(ctx, CreateInput{
		Username:     username,
		Email:        strings.ToUpper(email), // must be normalized on write
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		IsActive:     true,
		Now:          now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { deleteTestAdmin(ctx, pool, created.ID) })

	if created.ID == "" || created.Email != email {
		t.Fatalf("unexpected created administrator: %+v", created)
	}

	byUsername, err := store.GetAuthByUsername(ctx, username)
	if err != nil {
		t.Fatalf("GetAuthByUsername: %v", err)
	}
	if byUsername.ID != created.ID {
		t.Fatalf("lookup mismatch: %q vs %q", byUsername.ID, created.ID)
	}

	// Lookup is case-sensitive for usernames, normalized for emails.
	if _, err := store.GetAuthByUsername(ctx, strings.ToUpper(username)); !IsNotFound(err) {
		t.Fatalf("expected not-found for cased username, got %v", err)
	}
	byEmail, err := store.GetAuthByEmail(ctx, strings.ToUpper(email))
	if err != nil {
		t.Fatalf("GetAuthByEmail: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("email lookup mismatch")
	}

	// Duplicate username maps to a conflict.
	_, err = store.Create(ctx, CreateInput{
		Username:     username,
		Email:        "other_" + email,
		PasswordHash: byUsername.PasswordHash,
		IsActive:     true,
		Now:          now,
	})
	if !IsConflict(err) {
		t.Fatalf("expected conflict for duplicate username, got %v", err)
	}
}

func TestPostgresStore_OTPSlot(t *testing.T) {
	pool := mustOpenAdminTestPool(t)
	defer pool.Close()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	ctx := context.Background()
	a := seedAdmin(t, pool, store)
	now := time.Now().UTC()

	if err := store.SetOTP(ctx, a.ID, "hash-one", now.Add(5*time.Minute)); err != nil {
		t.Fatalf("SetOTP: %v", err)
	}
	// Overwrite: the slot holds exactly one code.
	if err := store.SetOTP(ctx, a.ID, "hash-two", now.Add(10*time.Minute)); err != nil {
		t.Fatalf("SetOTP overwrite: %v", err)
	}

	got, err := store.GetAuthByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAuthByID: %v", err)
	}
	if got.OTPHash == nil || *got.OTPHash != "hash-two" {
		t.Fatalf("expected last write to win, got %v", got.OTPHash)
	}

	if err := store.ClearOTP(ctx, a.ID); err != nil {
		t.Fatalf("ClearOTP: %v", err)
	}
	got, err = store.GetAuthByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAuthByID: %v", err)
	}
	if got.OTPHash != nil || got.OTPExpires != nil {
		t.Fatalf("expected empty slot after clear")
	}
}

func TestPostgresStore_LockoutCounters(t *testing.T) {
	pool := mustOpenAdminTestPool(t)
	defer pool.Close()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	ctx := context.Background()
	a := seedAdmin(t, pool, store)
	now := time.Now().UTC()

	for i := 0; i < 2; i++ {
		if err := store.RecordLoginFailure(ctx, a.ID, now, 3, 15*time.Minute); err != nil {
			t.Fatalf("RecordLoginFailure: %v", err)
		}
	}
	got, err := store.GetAuthByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAuthByID: %v", err)
	}
	if got.FailedAttempts != 2 || got.LockedUntil != nil {
		t.Fatalf("expected 2 failures, no lock: %+v", got)
	}

	// Third failure reaches the threshold.
	if err := store.RecordLoginFailure(ctx, a.ID, now, 3, 15*time.Minute); err != nil {
		t.Fatalf("RecordLoginFailure: %v", err)
	}
	got, err = store.GetAuthByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAuthByID: %v", err)
	}
	if got.FailedAttempts != 3 || got.LockedUntil == nil {
		t.Fatalf("expected lockout at threshold: %+v", got)
	}

	if err := store.ResetLoginFailures(ctx, a.ID); err != nil {
		t.Fatalf("ResetLoginFailures: %v", err)
	}
	got, err = store.GetAuthByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAuthByID: %v", err)
	}
	if got.FailedAttempts != 0 || got.LockedUntil != nil {
		t.Fatalf("expected counters cleared: %+v", got)
	}
}

func TestPostgresStore_ResetSlotAndPasswordUpdate(t *testing.T) {
	pool := mustOpenAdminTestPool(t)
	defer pool.Close()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	ctx := context.Background()
	a := seedAdmin(t, pool, store)
	now := time.Now().UTC()

	if err := store.SetResetToken(ctx, a.ID, "reset-hash", now.Add(30*time.Minute)); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}
	byToken, err := store.GetAuthByResetToken(ctx, "reset-hash")
	if err != nil {
		t.Fatalf("GetAuthByResetToken: %v", err)
	}
	if byToken.ID != a.ID {
		t.Fatalf("reset lookup mismatch")
	}

	// UpdatePassword replaces the hash and clears the reset slot atomically.
	if err := store.UpdatePassword(ctx, a.ID, "new-password-hash", now); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	got, err := store.GetAuthByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAuthByID: %v", err)
	}
	if got.PasswordHash != "new-password-hash" {
		t.Fatalf("password hash not updated")
	}
	if got.ResetTokenHash != nil || got.ResetExpires != nil {
		t.Fatalf("reset slot must be cleared by UpdatePassword")
	}
	if got.PasswordChangedAt == nil {
		t.Fatalf("password_changed_at must be stamped")
	}
	if _, err := store.GetAuthByResetToken(ctx, "reset-hash"); !IsNotFound(err) {
		t.Fatalf("consumed token must not resolve, got %v", err)
	}
}

// ---- helpers ----

func seedAdmin(t *testing.T, pool *pgxpool.Pool, store *PostgresStore) Administrator {
	t.Helper()

	username, email := newTestIdentity(t)
	created, err := store.Create(context.Background(), CreateInput{
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		IsActive:     true,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed administrator: %v", err)
	}
	t.Cleanup(func() { deleteTestAdmin(context.Background(), pool, created.ID) })
	return created
}

func newTestIdentity(t *testing.T) (username, email string) {
	t.Helper()
	id, err := NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	username = "admin_test_" + strings.ToLower(id)
	return username, username + "@example.com"
}

func deleteTestAdmin(ctx context.Context, pool *pgxpool.Pool, adminID string) {
	if strings.TrimSpace(adminID) == "" {
		return
	}
	_, _ = pool.Exec(ctx, `DELETE FROM backoffice.audit_log WHERE admin_id = $1`, adminID)
	_, _ = pool.Exec(ctx, `DELETE FROM backoffice.sessions WHERE admin_id = $1`, adminID)
	_, _ = pool.Exec(ctx, `DELETE FROM backoffice.administrators WHERE id = $1`, adminID)
}

func mustOpenAdminTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("BACKOFFICE_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: BACKOFFICE_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse BACKOFFICE_DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipAdminIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (BACKOFFICE_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

func shouldSkipAdminIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}
