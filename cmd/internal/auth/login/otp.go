package login

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const otpDigits = 6

var otpMax = big.NewInt(1_000_000)

// newOTPCode returns a uniformly random 6-digit code, zero-padded.
// crypto/rand's Int is unbiased, so "000000".."999999" are equally likely.
func newOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}

// newOpaqueResetToken returns a random URL-safe reset token and its
// deterministic storage hash (lookup requires a keyed digest, not Argon2id).
func newOpaqueResetToken(nBytes int) (plain string, hashHex string, err error) {
	if nBytes <= 0 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	plain = encodeToken(b)
	return plain, hashResetToken(plain), nil
}
