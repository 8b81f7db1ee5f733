package auth

import (
	"context"
	"fmt"
	"sync"
)

// Session holds the active credential for one browser session. It is the
// concrete Authenticator handed to the RBAC core: Login on authentication,
// Logout on sign-out or expiry, nothing in between mutates it.
type Session struct {
	decoder CredentialDecoder

	mu     sync.RWMutex
	raw    string
	claims *Claims
}

// NewSession creates a session bound to a credential decoder.
func NewSession(decoder CredentialDecoder) *Session {
	return &Session{decoder: decoder}
}

// Login verifies the raw credential and activates its claims. Re-login
// with the credential already active is a no-op, so per-request
// re-establishment does not re-verify the same token.
func (s *Session) Login(ctx context.Context, rawCredential string) error {
	s.mu.RLock()
	same := s.claims != nil && s.raw == rawCredential
	s.mu.RUnlock()
	if same {
		return nil
	}

	claims, err := s.decoder.Decode(ctx, rawCredential)
	if err != nil {
		return fmt.Errorf("decode credential: %w", err)
	}

	s.mu.Lock()
	s.raw = rawCredential
	s.claims = claims
	s.mu.Unlock()
	return nil
}

// Logout discards the active credential.
func (s *Session) Logout() {
	s.mu.Lock()
	s.raw = ""
	s.claims = nil
	s.mu.Unlock()
}

// IsAuthenticated reports whether a credential is active.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims != nil
}

// CurrentUser returns the authenticated subject.
func (s *Session) CurrentUser() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return "", ErrNotAuthenticated
	}
	return s.claims.Subject, nil
}

// PrimaryRoleType returns the credential's primary role claim, falling
// back to the first listed role when the claim is absent.
func (s *Session) PrimaryRoleType() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return "", ErrNotAuthenticated
	}
	if s.claims.PrimaryRole != "" {
		return s.claims.PrimaryRole, nil
	}
	if len(s.claims.Roles) > 0 {
		return s.claims.Roles[0], nil
	}
	return "", nil
}

// Claims returns the decoded claim set for the active credential.
func (s *Session) Claims() (*Claims, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return nil, false
	}
	return s.claims, true
}
