// Package token provides token hashing primitives for the back office.
//
// It is the single source of truth for session-token hashing behavior.
// Session tokens handed to clients are opaque random strings; the server
// stores only a 64-char hex digest, so a leaked sessions table cannot be
// replayed.
//
// Environment:
// - BACKOFFICE_TOKEN_HMAC_KEY: when set, enables HMAC-SHA256 mode.
//
// Policy:
//   - If RequireTokenHMAC=true, callers MUST enforce a minimum key size (>= 32 bytes)
//     and MUST use HMAC (no SHA fallback).
package token
