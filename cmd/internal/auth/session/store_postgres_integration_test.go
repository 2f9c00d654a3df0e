package session

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"backoffice/cmd/admin"
)

// These tests exercise PostgresStore against a real database. They are
// skipped unless BACKOFFICE_DATABASE_URL is set and expect the backoffice
// schema to exist.

func TestPostgresStore_CreateAndGet(t *testing.T) {
	pool := mustOpenSessionTestPool(t)
	store := NewPostgresStore(pool)
	owner := seedSessionAdmin(t, pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	ip := net.ParseIP("203.0.113.9")
	hash := newTestTokenHash(t, "create-and-get")

	created, err := store.Create(context.Background(), now, owner.ID, ip, "integration test agent", hash)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create returned empty session ID")
	}
	if created.AdminID != owner.ID {
		t.Fatalf("Create admin ID = %q, want %q", created.AdminID, owner.ID)
	}

	got, err := store.GetByTokenHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("GetByTokenHash: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("GetByTokenHash ID = %q, want %q", got.ID, created.ID)
	}
	if !got.IP.Equal(ip) {
		t.Fatalf("GetByTokenHash IP = %v, want %v", got.IP, ip)
	}
	if got.UserAgent == nil || *got.UserAgent != "integration test agent" {
		t.Fatalf("GetByTokenHash user agent = %v, want %q", got.UserAgent, "integration test agent")
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("GetByTokenHash created_at = %v, want %v", got.CreatedAt, now)
	}
	if !got.LastActivity.Equal(now) {
		t.Fatalf("GetByTokenHash last_activity = %v, want %v", got.LastActivity, now)
	}

	if _, err := store.GetByTokenHash(context.Background(), newTestTokenHash(t, "never-created")); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("GetByTokenHash miss error = %v, want ErrSessionNotFound", err)
	}
}

func TestPostgresStore_EmptyUserAgentStoredAsNull(t *testing.T) {
	pool := mustOpenSessionTestPool(t)
	store := NewPostgresStore(pool)
	owner := seedSessionAdmin(t, pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	hash := newTestTokenHash(t, "empty-agent")

	if _, err := store.Create(context.Background(), now, owner.ID, net.ParseIP("198.51.100.2"), "", hash); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.GetByTokenHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("GetByTokenHash: %v", err)
	}
	if got.UserAgent != nil {
		t.Fatalf("user agent = %q, want nil", *got.UserAgent)
	}
}

func TestPostgresStore_TouchAndOrdering(t *testing.T) {
	pool := mustOpenSessionTestPool(t)
	store := NewPostgresStore(pool)
	owner := seedSessionAdmin(t, pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	first := mustCreateSessionRow(t, store, owner.ID, base, "touch-first")
	second := mustCreateSessionRow(t, store, owner.ID, base.Add(time.Minute), "touch-second")

	rows, err := store.ListByAdmin(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("ListByAdmin: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ListByAdmin returned %d rows, want 2", len(rows))
	}
	if rows[0].ID != second.ID || rows[1].ID != first.ID {
		t.Fatalf("ListByAdmin order = [%s %s], want newest activity first", rows[0].ID, rows[1].ID)
	}

	// Touching the older session promotes it to the front.
	touched := base.Add(2 * time.Minute)
	if err := store.Touch(context.Background(), touched, first.ID); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	rows, err = store.ListByAdmin(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("ListByAdmin after touch: %v", err)
	}
	if rows[0].ID != first.ID {
		t.Fatalf("ListByAdmin head after touch = %s, want %s", rows[0].ID, first.ID)
	}
	if !rows[0].LastActivity.Equal(touched) {
		t.Fatalf("last_activity after touch = %v, want %v", rows[0].LastActivity, touched)
	}
	if !rows[0].CreatedAt.Equal(base) {
		t.Fatalf("created_at changed by touch: %v, want %v", rows[0].CreatedAt, base)
	}
}

func TestPostgresStore_DeleteByTokenHashIdempotent(t *testing.T) {
	pool := mustOpenSessionTestPool(t)
	store := NewPostgresStore(pool)
	owner := seedSessionAdmin(t, pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	row := mustCreateSessionRow(t, store, owner.ID, now, "delete-hash")

	if err := store.DeleteByTokenHash(context.Background(), row.TokenHash); err != nil {
		t.Fatalf("DeleteByTokenHash: %v", err)
	}
	if _, err := store.GetByTokenHash(context.Background(), row.TokenHash); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("GetByTokenHash after delete = %v, want ErrSessionNotFound", err)
	}
	// Second delete of the same hash must not fail.
	if err := store.DeleteByTokenHash(context.Background(), row.TokenHash); err != nil {
		t.Fatalf("DeleteByTokenHash repeat: %v", err)
	}
}

func TestPostgresStore_DeleteByIDScopedToOwner(t *testing.T) {
	pool := mustOpenSessionTestPool(t)
	store := NewPostgresStore(pool)
	owner := seedSessionAdmin(t, pool)
	other := seedSessionAdmin(t, pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	row := mustCreateSessionRow(t, store, owner.ID, now, "delete-scoped")

	// A different administrator cannot delete the session by ID.
	if err := store.DeleteByID(context.Background(), other.ID, row.ID); err != nil {
		t.Fatalf("DeleteByID (wrong owner): %v", err)
	}
	if _, err := store.GetByTokenHash(context.Background(), row.TokenHash); err != nil {
		t.Fatalf("session deleted by non-owner: %v", err)
	}

	if err := store.DeleteByID(context.Background(), owner.ID, row.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if _, err := store.GetByTokenHash(context.Background(), row.TokenHash); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("GetByTokenHash after owner delete = %v, want ErrSessionNotFound", err)
	}
}

func TestPostgresStore_DeleteOthersKeepsCurrent(t *testing.T) {
	pool := mustOpenSessionTestPool(t)
	store := NewPostgresStore(pool)
	owner := seedSessionAdmin(t, pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	keep := mustCreateSessionRow(t, store, owner.ID, base, "others-keep")
	mustCreateSessionRow(t, store, owner.ID, base.Add(time.Second), "others-a")
	mustCreateSessionRow(t, store, owner.ID, base.Add(2*time.Second), "others-b")

	n, err := store.DeleteOthers(context.Background(), owner.ID, keep.TokenHash)
	if err != nil {
		t.Fatalf("DeleteOthers: %v", err)
	}
	if n != 2 {
		t.Fatalf("DeleteOthers removed %d rows, want 2", n)
	}

	rows, err := store.ListByAdmin(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("ListByAdmin: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != keep.ID {
		t.Fatalf("surviving sessions = %v, want only %s", rows, keep.ID)
	}
}

func TestPostgresStore_DeleteAllByAdmin(t *testing.T) {
	pool := mustOpenSessionTestPool(t)
	store := NewPostgresStore(pool)
	owner := seedSessionAdmin(t, pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	mustCreateSessionRow(t, store, owner.ID, base, "all-a")
	mustCreateSessionRow(t, store, owner.ID, base.Add(time.Second), "all-b")

	n, err := store.DeleteAllByAdmin(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("DeleteAllByAdmin: %v", err)
	}
	if n != 2 {
		t.Fatalf("DeleteAllByAdmin removed %d rows, want 2", n)
	}

	rows, err := store.ListByAdmin(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("ListByAdmin: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("ListByAdmin returned %d rows after DeleteAllByAdmin, want 0", len(rows))
	}

	// Deleting again is a no-op with a zero count.
	n, err = store.DeleteAllByAdmin(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("DeleteAllByAdmin repeat: %v", err)
	}
	if n != 0 {
		t.Fatalf("DeleteAllByAdmin repeat removed %d rows, want 0", n)
	}
}

func mustCreateSessionRow(t *testing.T, store *PostgresStore, adminID string, now time.Time, label string) Row {
	t.Helper()

	row, err := store.Create(context.Background(), now, adminID, net.ParseIP("192.0.2.10"), "integration test agent", newTestTokenHash(t, label))
	if err != nil {
		t.Fatalf("Create (%s): %v", label, err)
	}
	return row
}

// newTestTokenHash returns a unique 64-hex-character value shaped like a real
// session token hash.
func newTestTokenHash(t *testing.T, label string) string {
	t.Helper()

	_, hashHex, err := newOpaqueSessionToken(32)
	if err != nil {
		t.Fatalf("mint token (%s): %v", label, err)
	}
	return hashHex
}

func seedSessionAdmin(t *testing.T, pool *pgxpool.Pool) admin.Administrator {
	t.Helper()

	id, err := admin.NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	username := "session_test_" + strings.ToLower(id)

	adminStore, err := admin.NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	created, err := adminStore.Create(context.Background(), admin.CreateInput{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		IsActive:     true,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed administrator: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM backoffice.sessions WHERE admin_id = $1`, created.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM backoffice.administrators WHERE id = $1`, created.ID)
	})
	return created
}

func mustOpenSessionTestPool(t *testing.T) *pgxpool.Pool {
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
		if shouldSkipSessionIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (BACKOFFICE_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	t.Cleanup(pool.Close)
	return pool
}

func shouldSkipSessionIntegration(err error) bool {
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
