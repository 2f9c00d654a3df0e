package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backoffice/cmd/admin"

	"github.com/jackc/pgx/v5/pgxpool"
)

// bootstrapAdmin seeds the first administrator account from environment
// configuration so a fresh deployment has a way into the login flow.
// No bootstrap variables set is a no-op; a partial set is a configuration
// error.
func bootstrapAdmin(ctx context.Context, cfg Config, log Logger, pool *pgxpool.Pool) error {
	username := cfg.BootstrapAdminUsername
	email := cfg.BootstrapAdminEmail
	pass := cfg.BootstrapAdminPassword

	if username == "" && email == "" && pass == "" {
		return nil
	}
	if username == "" || email == "" || pass == "" {
		return errors.New("bootstrap admin: BACKOFFICE_BOOTSTRAP_ADMIN_USERNAME, BACKOFFICE_BOOTSTRAP_ADMIN_EMAIL and BACKOFFICE_BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}

	store, err := admin.NewPostgresStore(pool)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	a, created, err := admin.Bootstrap(ctx, store, admin.BootstrapInput{
		Username: username,
		Email:    email,
		Password: pass,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	if created {
		log.Info("admin.bootstrap.created", "admin_id", a.ID, "username", a.Username)
	} else {
		log.Info("admin.bootstrap.exists", "admin_id", a.ID, "username", a.Username)
	}
	return nil
}
