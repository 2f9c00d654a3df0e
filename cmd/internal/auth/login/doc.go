// Package login implements the credential + one-time-code login sequencer.
//
// The flow is a three-step state machine:
//
//	AwaitingCredentials -> AwaitingOTP -> Authenticated
//
// SubmitCredentials verifies the human-verification token and the password,
// then issues a 6-digit emailed code and returns a Pending value the caller
// carries between requests (as a PASETO v4.local cookie). SubmitOTP consumes
// the code, clears the single-use slot and creates a session. All failure
// transitions fall back to AwaitingCredentials.
//
// Anti-enumeration: unknown username, inactive account, locked account and
// wrong password are indistinguishable to the caller, a dummy Argon2id verify
// burns comparable CPU when the account is missing, and a uniform random
// delay is inserted before every credential response.
package login
