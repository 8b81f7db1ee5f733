package rbac

import (
	"sort"
	"strings"
)

// ScreenRule maps a path prefix to the roles allowed to open screens under
// that prefix. Matching is by whole path segments, case-sensitive, with
// longest prefix winning.
type ScreenRule struct {
	Prefix string
	Roles  []Role
}

// ScreenPolicy is the static screen access table, loaded at process start
// and immutable afterwards.
type ScreenPolicy struct {
	rules []ScreenRule
}

// NewScreenPolicy builds a policy from rules. Rule prefixes are normalized
// (trailing slash stripped) and ordered longest-first so lookups resolve
// longest-prefix-wins.
func NewScreenPolicy(rules []ScreenRule) *ScreenPolicy {
	normalized := make([]ScreenRule, len(rules))
	for i, r := range rules {
		normalized[i] = ScreenRule{Prefix: normalizePath(r.Prefix), Roles: r.Roles}
	}
	sort.SliceStable(normalized, func(i, j int) bool {
		return segmentCount(normalized[i].Prefix) > segmentCount(normalized[j].Prefix)
	})
	return &ScreenPolicy{rules: normalized}
}

// Match returns the required roles for the longest rule prefix covering
// path, or ok=false when no rule applies.
func (p *ScreenPolicy) Match(path string) ([]Role, bool) {
	path = normalizePath(path)
	for _, r := range p.rules {
		if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r.Roles, true
		}
	}
	return nil, false
}

// DataPolicy is the static data-type access table, keyed by data-type tag.
type DataPolicy map[string][]Role

// Match returns the required roles for the data-type tag.
func (p DataPolicy) Match(tag string) ([]Role, bool) {
	roles, ok := p[tag]
	return roles, ok
}

// normalizePath strips trailing slashes without folding case. "/qrmfg/admin/"
// and "/qrmfg/admin" are the same screen; "/qrmfg/Admin" is not.
func normalizePath(path string) string {
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func segmentCount(path string) int {
	return len(strings.Split(strings.Trim(path, "/"), "/"))
}

// DefaultScreenPolicy returns the portal's screen access table.
func DefaultScreenPolicy() *ScreenPolicy {
	return NewScreenPolicy([]ScreenRule{
		{Prefix: "/qrmfg/admin", Roles: []Role{RoleAdmin}},
		{Prefix: "/qrmfg/admin/users", Roles: []Role{RoleAdmin}},
		{Prefix: "/qrmfg/admin/cache", Roles: []Role{RoleAdmin}},
		{Prefix: "/qrmfg/workflows", Roles: []Role{RoleJVCUser, RoleCQSUser, RoleTechUser, RolePlantUser}},
		{Prefix: "/qrmfg/queries", Roles: []Role{RoleJVCUser, RoleCQSUser, RoleTechUser, RolePlantUser}},
		{Prefix: "/qrmfg/reports", Roles: []Role{RoleCQSUser, RoleTechUser}},
		{Prefix: "/qrmfg/plants", Roles: []Role{RolePlantUser}},
		{Prefix: "/qrmfg/dashboard", Roles: nil},
	})
}

// DefaultDataPolicy returns the portal's data-type access table.
func DefaultDataPolicy() DataPolicy {
	return DataPolicy{
		"query":    {RoleJVCUser, RoleCQSUser, RoleTechUser, RolePlantUser},
		"material": {RoleJVCUser, RoleCQSUser, RoleTechUser},
		"project":  {RoleJVCUser, RoleCQSUser, RoleTechUser},
		"plant":    {RolePlantUser},
		"user":     {RoleAdmin},
	}
}
