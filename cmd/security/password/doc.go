// Package password provides password hashing and verification for the back office.
//
// It implements Argon2id hashing using a PHC-like encoded string format and includes:
// - Configurable Argon2id parameters (via environment variables)
// - Password policy validation
// - Strict hash decoding and verification with anti-DoS bounds
//
// The same primitive also protects one-time login codes and password-reset
// tokens (HashSecret), so a database dump never contains a verifiable secret
// in plaintext.
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - Verification refuses hashes with parameters that exceed reasonable bounds.
package password
