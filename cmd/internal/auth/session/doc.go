// Package session implements the back office's session model.
//
// Sessions are durable Postgres rows keyed by the hash of an opaque random
// token (>= 256 bits of entropy). A session is live only while
// now - last_activity <= timeout; liveness is re-evaluated on every check and
// successful checks slide last_activity forward. Revocation deletes rows, so
// a session either fully exists or is fully gone.
//
// There is no in-memory cache: every validate/list/revoke is a direct
// datastore round-trip. Admin-panel traffic is low; simplicity wins.
package session
