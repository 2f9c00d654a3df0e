package login

import (
	"encoding/base64"

	"backoffice/cmd/security/token"
)

func encodeToken(b []byte) string {
	// URL-safe, no padding: reset tokens travel inside email links.
	return base64.RawURLEncoding.EncodeToString(b)
}

// hashResetToken maps a reset token to its storage digest. Reset tokens are
// looked up by hash, so this must be deterministic (HMAC-SHA256 when the key
// is configured, SHA-256 otherwise) rather than salted Argon2id.
func hashResetToken(plain string) string {
	return token.HashSessionTokenHex(plain)
}
