// Package api exposes the back office authentication endpoints: the
// two-step login sequence, session management and the password lifecycle.
package api
