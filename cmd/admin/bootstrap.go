package admin

import (
	"context"
	"strings"
	"time"
)

// BootstrapStore is the subset of Store needed to seed the first account.
type BootstrapStore interface {
	Create(ctx context.Context, in CreateInput) (Administrator, error)
	GetAuthByUsername(ctx context.Context, username string) (Auth, error)
}

// BootstrapInput describes the initial administrator account, typically
// sourced from environment variables at startup.
type BootstrapInput struct {
	Username string
	Email    string
	Password string
	Now      time.Time
}

// Bootstrap creates the initial administrator account when it does not exist
// yet. It returns the account and whether this call created it.
//
// Idempotent: if the username already exists (including a concurrent create
// racing to the unique index) the existing account is returned with
// created=false and the password input is ignored.
func Bootstrap(ctx context.Context, store BootstrapStore, in BootstrapInput) (Administrator, bool, error) {
	const op = "admin.Bootstrap"

	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return Administrator{}, false, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username, email and password are required"}
	}

	existing, err := store.GetAuthByUsername(ctx, username)
	if err == nil {
		return existing.Administrator, false, nil
	}
	if !IsNotFound(err) {
		return Administrator{}, false, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Administrator{}, false, err
	}

	created, err := store.Create(ctx, CreateInput{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		Now:          in.Now,
	})
	if err != nil {
		if IsConflict(err) {
			// Lost the race; the row that won is the account we wanted.
			if existing, lookupErr := store.GetAuthByUsername(ctx, username); lookupErr == nil {
				return existing.Administrator, false, nil
			}
			return Administrator{}, false, err
		}
		return Administrator{}, false, err
	}
	return created, true, nil
}
