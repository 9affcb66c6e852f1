package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchthat/storefront/internal/platform/httpx"
)

func TestRequirePermissionDenied(t *testing.T) {
	err := RequirePermission(Principal{UserID: "user-1"}, PermEditAny)
	require.Error(t, err)
	assert.True(t, IsAccessDenied(err))
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
}

func TestRequirePermissionGranted(t *testing.T) {
	err := RequirePermission(Principal{UserID: "user-1", DownloadRole: RoleManager}, PermEditAny)
	assert.NoError(t, err)
}

func TestRequireOwnerOrPermission(t *testing.T) {
	owner := Principal{UserID: "owner-1"}
	assert.NoError(t, RequireOwnerOrPermission(owner, "owner-1", PermEditAny))

	stranger := Principal{UserID: "user-2"}
	err := RequireOwnerOrPermission(stranger, "owner-1", PermEditAny)
	assert.True(t, IsAccessDenied(err))

	manager := Principal{UserID: "user-3", DownloadRole: RoleManager}
	assert.NoError(t, RequireOwnerOrPermission(manager, "owner-1", PermEditAny))

	admin := Principal{UserID: "user-4", Admin: true}
	assert.NoError(t, RequireOwnerOrPermission(admin, "owner-1", PermEditAny))
}
