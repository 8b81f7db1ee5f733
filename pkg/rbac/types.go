package rbac

import (
	"sort"
	"strings"
	"time"
)

// Role identifies a capability group assigned to a principal.
// The set of roles is closed; unrecognized role strings never map to a
// default role (see ParseRole).
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleJVCUser   Role = "JVC_USER"
	RoleCQSUser   Role = "CQS_USER"
	RoleTechUser  Role = "TECH_USER"
	RolePlantUser Role = "PLANT_USER"
	RoleViewer    Role = "VIEWER"
)

// PlantCode identifies a manufacturing site. Comparison is exact-match:
// no case folding and no hierarchy.
type PlantCode string

// Principal is the authenticated entity access decisions are made for.
// It is immutable for the lifetime of a session; a new Principal is built
// on every explicit re-authentication.
type Principal struct {
	ID           string      `json:"id"`
	Roles        []Role      `json:"roles"`
	Plants       []PlantCode `json:"plants"`
	PrimaryPlant PlantCode   `json:"primary_plant,omitempty"`
}

// NewPrincipal builds a Principal, deduplicating roles and defaulting an
// empty role set to VIEWER. An authenticated principal never has zero roles.
func NewPrincipal(id string, roles []Role, plants []PlantCode, primaryPlant PlantCode) *Principal {
	seen := make(map[Role]struct{}, len(roles))
	deduped := make([]Role, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		deduped = append(deduped, r)
	}
	if len(deduped) == 0 {
		deduped = []Role{RoleViewer}
	}
	return &Principal{
		ID:           id,
		Roles:        deduped,
		Plants:       plants,
		PrimaryPlant: primaryPlant,
	}
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal holds the ADMIN role. ADMIN passes
// every role requirement and sees every plant.
func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// HasPlant reports whether the plant code is among the principal's
// assigned plants.
func (p *Principal) HasPlant(code PlantCode) bool {
	for _, pc := range p.Plants {
		if pc == code {
			return true
		}
	}
	return false
}

// RequireMode selects how a role requirement combines its listed roles.
type RequireMode string

const (
	// ModeAll requires every listed role to be present.
	ModeAll RequireMode = "ALL"
	// ModeAny requires at least one listed role to be present.
	ModeAny RequireMode = "ANY"
)

// RequirementKind discriminates the AccessRequirement variants.
type RequirementKind string

const (
	KindScreen RequirementKind = "screen"
	KindData   RequirementKind = "data"
	KindRoles  RequirementKind = "roles"
)

// AccessRequirement is a declarative description of what access is needed
// to view a screen, a dataset, or a gated component. Exactly one variant
// is populated depending on Kind.
type AccessRequirement struct {
	Kind RequirementKind `json:"kind"`

	// Path is set for KindScreen.
	Path string `json:"path,omitempty"`

	// DataType is set for KindData.
	DataType string `json:"data_type,omitempty"`

	// Roles and Mode are set for KindRoles.
	Roles []Role      `json:"roles,omitempty"`
	Mode  RequireMode `json:"mode,omitempty"`
}

// ScreenRequirement describes access to the screen at the given path.
func ScreenRequirement(path string) AccessRequirement {
	return AccessRequirement{Kind: KindScreen, Path: path}
}

// DataRequirement describes access to records tagged with the given
// data-type tag.
func DataRequirement(dataType string) AccessRequirement {
	return AccessRequirement{Kind: KindData, DataType: dataType}
}

// RoleRequirement describes a role-set requirement evaluated locally,
// with ALL or ANY combination semantics.
func RoleRequirement(mode RequireMode, roles ...Role) AccessRequirement {
	return AccessRequirement{Kind: KindRoles, Roles: roles, Mode: mode}
}

// CacheKey returns the requirement-shape portion of a decision cache key.
// Two requirements with the same key are interchangeable for caching.
func (r AccessRequirement) CacheKey() string {
	switch r.Kind {
	case KindScreen:
		return "screen:" + normalizePath(r.Path)
	case KindData:
		return "data:" + r.DataType
	default:
		names := make([]string, len(r.Roles))
		for i, role := range r.Roles {
			names[i] = string(role)
		}
		sort.Strings(names)
		return "roles:" + string(r.Mode) + ":" + strings.Join(names, ",")
	}
}

// DecisionSource records where a decision was resolved.
type DecisionSource string

const (
	// SourceLocal means the decision came from a static local table.
	SourceLocal DecisionSource = "LOCAL"
	// SourceRemote means the decision required the remote authorization
	// endpoint (including remote failures, which resolve to deny).
	SourceRemote DecisionSource = "REMOTE"
)

// AccessDecision is the result of a screen or data check.
type AccessDecision struct {
	Granted    bool           `json:"granted"`
	ResolvedAt time.Time      `json:"resolved_at"`
	Source     DecisionSource `json:"source"`
}
