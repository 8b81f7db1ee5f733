package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ClaimMapping names the ID-token claims carrying role and plant
// assignments. Identity providers differ here, so the keys are
// configuration, not constants.
type ClaimMapping struct {
	Subject      string
	Username     string
	Roles        string
	Plants       string
	PrimaryPlant string
	PrimaryRole  string
}

// DefaultClaimMapping returns the claim keys used by the portal's identity
// provider.
func DefaultClaimMapping() ClaimMapping {
	return ClaimMapping{
		Subject:      "sub",
		Username:     "preferred_username",
		Roles:        "roles",
		Plants:       "plants",
		PrimaryPlant: "primary_plant",
		PrimaryRole:  "primary_role",
	}
}

// OIDCDecoder verifies bearer ID tokens against an OpenID Connect
// provider and maps their claims into Claims. It decodes locally after
// provider discovery; no network call per token beyond key rotation.
type OIDCDecoder struct {
	verifier *oidc.IDTokenVerifier
	mapping  ClaimMapping
}

// OIDCConfig configures provider discovery for the decoder.
type OIDCConfig struct {
	IssuerURL string
	ClientID  string
	Mapping   ClaimMapping
}

// NewOIDCDecoder discovers the provider and builds a token decoder.
func NewOIDCDecoder(ctx context.Context, cfg OIDCConfig) (*OIDCDecoder, error) {
	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("oidc issuer URL is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC provider: %w", err)
	}

	mapping := cfg.Mapping
	if mapping.Subject == "" {
		mapping = DefaultClaimMapping()
	}

	return &OIDCDecoder{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		mapping:  mapping,
	}, nil
}

// Decode verifies the raw ID token and extracts the mapped claims.
func (d *OIDCDecoder) Decode(ctx context.Context, rawCredential string) (*Claims, error) {
	idToken, err := d.verifier.Verify(ctx, rawCredential)
	if err != nil {
		return nil, fmt.Errorf("verify ID token: %w", err)
	}

	var raw map[string]interface{}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	return mapIdentity(raw, d.mapping), nil
}

// mapIdentity projects a raw claim map through a ClaimMapping. Missing
// claims yield zero values; the RBAC core treats an empty role list as
// VIEWER and falls back to a directory lookup for plants.
func mapIdentity(raw map[string]interface{}, mapping ClaimMapping) *Claims {
	return &Claims{
		Subject:      stringClaim(raw, mapping.Subject),
		Username:     stringClaim(raw, mapping.Username),
		Roles:        stringSliceClaim(raw, mapping.Roles),
		Plants:       stringSliceClaim(raw, mapping.Plants),
		PrimaryPlant: stringClaim(raw, mapping.PrimaryPlant),
		PrimaryRole:  stringClaim(raw, mapping.PrimaryRole),
	}
}

func stringClaim(raw map[string]interface{}, key string) string {
	if key == "" {
		return ""
	}
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceClaim(raw map[string]interface{}, key string) []string {
	if key == "" {
		return nil
	}
	switch v := raw[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
