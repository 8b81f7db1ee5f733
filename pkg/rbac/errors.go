package rbac

import "errors"

// Every error in this taxonomy resolves to a deny at the gate boundary.
// Only transport and timeout errors are worth surfacing for telemetry;
// the rest are ordinary outcomes of the fail-closed posture.
var (
	// ErrAuthenticationAbsent is returned when no principal is established.
	// All checks deny.
	ErrAuthenticationAbsent = errors.New("rbac: no authenticated principal")

	// ErrAuthorizationTransport is returned when the remote authorization
	// call failed. The decision is deny; the call is not retried beyond
	// the client's single automatic retry.
	ErrAuthorizationTransport = errors.New("rbac: remote authorization call failed")

	// ErrAuthorizationTimeout is returned when the remote authorization
	// call did not resolve within the engine's deadline. The decision is deny.
	ErrAuthorizationTimeout = errors.New("rbac: remote authorization call timed out")

	// ErrUnmappedResource is returned when no local rule matches and no
	// remote authorizer is configured. Deny by default, never allow.
	ErrUnmappedResource = errors.New("rbac: no rule for resource and no remote authorizer configured")

	// ErrUnknownRole is returned by ParseRole for a role string outside the
	// closed role set.
	ErrUnknownRole = errors.New("rbac: unknown role")
)
