// Package admin implements the administrator persistence boundary for the
// back office.
//
// It owns the administrators table: credentials, the single one-time-code
// slot, the password-reset slot, lockout bookkeeping and profile fields.
// Login orchestration lives in cmd/internal/auth/login; this package is
// intentionally dependency-light and security-first.
package admin
