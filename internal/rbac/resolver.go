package rbac

// allPermissions marks the admin override: every permission, including
// ones that exist only as management gates.
var allPermissions = func() PermissionSet {
	s := make(PermissionSet)
	for _, p := range CatalogPermissions() {
		s[p] = struct{}{}
	}
	return s
}()

// EffectivePermissions computes the permission set in effect for a
// principal. The global admin flag is an unconditional override and is
// resolved before any role lookup. A principal with no assigned role
// falls back to the default (lowest-privilege) role; an assigned but
// unknown role resolves to the empty set.
func EffectivePermissions(p Principal) PermissionSet {
	if p.Admin {
		return allPermissions
	}
	if !p.Authenticated() {
		return PermissionSet{}
	}
	role := p.DownloadRole
	if role == "" {
		role = DefaultRole
	}
	perms, ok := rolePermissions[role]
	if !ok {
		return PermissionSet{}
	}
	return perms
}

// HasPermission reports whether the principal's effective set contains p.
func HasPermission(principal Principal, p Permission) bool {
	return EffectivePermissions(principal).Has(p)
}
