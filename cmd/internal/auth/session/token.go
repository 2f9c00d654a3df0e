package session

import (
	"crypto/rand"
	"encoding/base64"

	"backoffice/cmd/security/token"
)

func newOpaqueSessionToken(nBytes int) (plain string, hashHex string, err error) {
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}

	// URL-safe, no padding.
	plain = base64.RawURLEncoding.EncodeToString(b)

	hashHex = token.HashSessionTokenHex(plain) // 64 hex chars

	return plain, hashHex, nil
}

// hashToken maps a client-presented token to its storage hash.
func hashToken(plain string) string {
	return token.HashSessionTokenHex(plain)
}
