package rbac

// NavigationEntry is one row of the static menu table. RequiredRoles uses
// ANY semantics; an entry with no required roles is visible to every
// authenticated principal.
type NavigationEntry struct {
	Key           string `json:"key"`
	Label         string `json:"label"`
	IconTag       string `json:"icon"`
	Path          string `json:"path"`
	RequiredRoles []Role `json:"-"`
}

// NavigationBuilder filters the static menu table per principal. It is a
// pure function of (principal, table): no side effects, no remote calls,
// deterministic and order-preserving.
type NavigationBuilder struct {
	entries []NavigationEntry
}

// NewNavigationBuilder builds over a static entry table, defaulting to the
// portal menu when entries is nil.
func NewNavigationBuilder(entries []NavigationEntry) *NavigationBuilder {
	if entries == nil {
		entries = DefaultMenu()
	}
	return &NavigationBuilder{entries: entries}
}

// BuildMenu returns the entries visible to the principal, in table order,
// with icon tags resolved (unmapped tags fall back to DefaultIcon rather
// than failing). A nil principal sees nothing.
func (b *NavigationBuilder) BuildMenu(p *Principal) []NavigationEntry {
	if p == nil {
		return nil
	}

	visible := make([]NavigationEntry, 0, len(b.entries))
	for _, entry := range b.entries {
		if !rolesSatisfied(p, entry.RequiredRoles, ModeAny) {
			continue
		}
		entry.IconTag = ResolveIcon(entry.IconTag)
		visible = append(visible, entry)
	}
	return visible
}

// DefaultMenu is the portal's static navigation table. Declared order is
// rendered order.
func DefaultMenu() []NavigationEntry {
	return []NavigationEntry{
		{Key: "dashboard", Label: "Dashboard", IconTag: "dashboard", Path: "/qrmfg/dashboard"},
		{Key: "queries", Label: "Quality Queries", IconTag: "file-search", Path: "/qrmfg/queries",
			RequiredRoles: []Role{RoleJVCUser, RoleCQSUser, RoleTechUser, RolePlantUser}},
		{Key: "workflows", Label: "Workflows", IconTag: "experiment", Path: "/qrmfg/workflows",
			RequiredRoles: []Role{RoleJVCUser, RoleCQSUser, RoleTechUser, RolePlantUser}},
		{Key: "reports", Label: "Reports", IconTag: "database", Path: "/qrmfg/reports",
			RequiredRoles: []Role{RoleCQSUser, RoleTechUser}},
		{Key: "plants", Label: "Plant View", IconTag: "home", Path: "/qrmfg/plants",
			RequiredRoles: []Role{RolePlantUser}},
		{Key: "users", Label: "User Management", IconTag: "user", Path: "/qrmfg/admin/users",
			RequiredRoles: []Role{RoleAdmin}},
		{Key: "cache", Label: "Cache Monitor", IconTag: "monitor", Path: "/qrmfg/admin/cache",
			RequiredRoles: []Role{RoleAdmin}},
		{Key: "audit", Label: "Access Audit", IconTag: "audit", Path: "/qrmfg/admin/audit",
			RequiredRoles: []Role{RoleAdmin}},
	}
}
