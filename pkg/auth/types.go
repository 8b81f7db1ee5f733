package auth

import (
	"context"
	"errors"
)

// ErrNotAuthenticated is returned by session accessors when no credential
// is active.
var ErrNotAuthenticated = errors.New("auth: not authenticated")

// Claims carries the identity assertions decoded from the active
// credential. Role and plant values are raw strings here; the RBAC core
// owns mapping them onto its closed role set.
type Claims struct {
	Subject      string   `json:"sub"`
	Username     string   `json:"preferred_username,omitempty"`
	Roles        []string `json:"roles"`
	Plants       []string `json:"plants,omitempty"`
	PrimaryPlant string   `json:"primary_plant,omitempty"`
	PrimaryRole  string   `json:"primary_role,omitempty"`
}

// CredentialDecoder verifies a raw bearer credential and extracts its
// claim set. Implementations never issue credentials; that is the identity
// provider's job.
type CredentialDecoder interface {
	Decode(ctx context.Context, rawCredential string) (*Claims, error)
}

// Authenticator is the authentication collaborator consumed by the RBAC
// core. It answers who is logged in; it makes no authorization decisions.
type Authenticator interface {
	IsAuthenticated() bool
	CurrentUser() (string, error)
	PrimaryRoleType() (string, error)

	// Claims returns the decoded claim set for the active credential, or
	// ok=false when no credential is active.
	Claims() (*Claims, bool)
}
