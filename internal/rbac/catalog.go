package rbac

// Permission is an atomic capability identifier.
type Permission string

// Download permissions.
const (
	PermViewPublic       Permission = "view_public"
	PermViewPrivate      Permission = "view_private"
	PermDownload         Permission = "download"
	PermUpload           Permission = "upload"
	PermEditOwn          Permission = "edit_own"
	PermEditAny          Permission = "edit_any"
	PermDeleteOwn        Permission = "delete_own"
	PermDeleteAny        Permission = "delete_any"
	PermManageCategories Permission = "manage_categories"
	PermViewStats        Permission = "view_stats"
)

// PermManagePermissions gates role administration. No download role carries
// it; only the global admin override grants it.
const PermManagePermissions Permission = "admin:manage_permissions"

// Download role names.
const (
	RoleViewer   = "viewer"
	RoleUploader = "uploader"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// DefaultRole is the lowest-privilege role used when none is assigned.
const DefaultRole = RoleViewer

// PermissionSet is an immutable set of permissions.
type PermissionSet map[Permission]struct{}

// Has reports set membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the permissions in unspecified order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}

func newSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// rolePermissions is the static catalog mapping role name to permission
// set. Built once at process start; never mutated at runtime.
var rolePermissions = map[string]PermissionSet{
	RoleViewer: newSet(
		PermViewPublic,
		PermDownload,
	),
	RoleUploader: newSet(
		PermViewPublic,
		PermDownload,
		PermUpload,
		PermEditOwn,
		PermDeleteOwn,
	),
	RoleManager: newSet(
		PermViewPublic,
		PermViewPrivate,
		PermDownload,
		PermUpload,
		PermEditOwn,
		PermEditAny,
		PermDeleteOwn,
		PermDeleteAny,
		PermManageCategories,
		PermViewStats,
	),
	RoleAdmin: newSet(
		PermViewPublic,
		PermViewPrivate,
		PermDownload,
		PermUpload,
		PermEditOwn,
		PermEditAny,
		PermDeleteOwn,
		PermDeleteAny,
		PermManageCategories,
		PermViewStats,
	),
}

// IsKnownRole reports whether name is one of the catalog roles.
func IsKnownRole(name string) bool {
	_, ok := rolePermissions[name]
	return ok
}

// CatalogRoles returns the catalog role names.
func CatalogRoles() []string {
	return []string{RoleViewer, RoleUploader, RoleManager, RoleAdmin}
}

// CatalogPermissions returns every permission the catalog grants,
// including the management gate.
func CatalogPermissions() []Permission {
	return []Permission{
		PermViewPublic,
		PermViewPrivate,
		PermDownload,
		PermUpload,
		PermEditOwn,
		PermEditAny,
		PermDeleteOwn,
		PermDeleteAny,
		PermManageCategories,
		PermViewStats,
		PermManagePermissions,
	}
}
