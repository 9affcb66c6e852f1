package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePermissionsDefaultsToViewer(t *testing.T) {
	p := Principal{UserID: "user-1"}
	perms := EffectivePermissions(p)
	assert.Len(t, perms, 2)
	assert.True(t, perms.Has(PermViewPublic))
	assert.True(t, perms.Has(PermDownload))
	assert.False(t, perms.Has(PermUpload))
}

func TestEffectivePermissionsAdminOverride(t *testing.T) {
	p := Principal{UserID: "user-1", Admin: true}
	perms := EffectivePermissions(p)
	for _, perm := range CatalogPermissions() {
		assert.True(t, perms.Has(perm), "admin should hold %s", perm)
	}
}

func TestEffectivePermissionsUnknownRoleIsEmpty(t *testing.T) {
	p := Principal{UserID: "user-1", DownloadRole: "superuser"}
	assert.Empty(t, EffectivePermissions(p))
}

func TestEffectivePermissionsGuest(t *testing.T) {
	assert.Empty(t, EffectivePermissions(Principal{}))
}

func TestManagerHoldsEditAny(t *testing.T) {
	p := Principal{UserID: "user-1", DownloadRole: RoleManager}
	assert.True(t, HasPermission(p, PermEditAny))
	assert.True(t, HasPermission(p, PermViewPrivate))
	assert.False(t, HasPermission(p, PermManagePermissions))
}
