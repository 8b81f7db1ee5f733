// Package contextkeys holds the shared request-context keys, in one place
// so packages do not collide or import each other for a key.
package contextkeys

// Key is the type for context keys used across the portal
type Key string

const (
	// PrincipalIDKey carries the authenticated principal's ID
	PrincipalIDKey Key = "principal_id"
	// RequestIDKey carries the per-request correlation ID
	RequestIDKey Key = "request_id"
)
