package rbac

import "fmt"

// DisplayMeta is the presentation metadata attached to a role.
type DisplayMeta struct {
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon"`
}

// DefaultIcon is substituted when a navigation entry names an icon tag the
// catalog does not know. This is the only silent fallback in the catalog;
// unknown roles are rejected, not defaulted.
const DefaultIcon = "appstore"

var roleCatalog = map[Role]DisplayMeta{
	RoleAdmin:     {DisplayName: "Administrator", Icon: "setting"},
	RoleJVCUser:   {DisplayName: "JVC Team", Icon: "team"},
	RoleCQSUser:   {DisplayName: "CQS Team", Icon: "safety-certificate"},
	RoleTechUser:  {DisplayName: "Technology Team", Icon: "experiment"},
	RolePlantUser: {DisplayName: "Plant User", Icon: "home"},
	RoleViewer:    {DisplayName: "Viewer", Icon: "eye"},
}

// catalogOrder fixes the iteration order for AllRoles; map iteration order
// must not leak into rendered output.
var catalogOrder = []Role{
	RoleAdmin,
	RoleJVCUser,
	RoleCQSUser,
	RoleTechUser,
	RolePlantUser,
	RoleViewer,
}

var knownIcons = map[string]struct{}{
	"setting":            {},
	"team":               {},
	"safety-certificate": {},
	"experiment":         {},
	"home":               {},
	"eye":                {},
	"dashboard":          {},
	"file-search":        {},
	"audit":              {},
	"database":           {},
	"appstore":           {},
	"user":               {},
}

// AllRoles returns every role in the closed set, in catalog order.
func AllRoles() []Role {
	out := make([]Role, len(catalogOrder))
	copy(out, catalogOrder)
	return out
}

// Describe returns the display metadata for a role. The mapping is total
// over the closed role set; ok is false only for a Role value that was
// never produced by ParseRole.
func Describe(role Role) (DisplayMeta, bool) {
	meta, ok := roleCatalog[role]
	return meta, ok
}

// ParseRole maps a raw role string onto the closed role set. Strings
// outside the set return ErrUnknownRole; there is deliberately no default
// mapping for unrecognized roles.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if _, ok := roleCatalog[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return role, nil
}

// ResolveIcon maps an icon tag onto a renderable icon, substituting
// DefaultIcon for tags outside the known icon set.
func ResolveIcon(tag string) string {
	if _, ok := knownIcons[tag]; ok {
		return tag
	}
	return DefaultIcon
}
