package rbac

import (
	"errors"
	"fmt"

	"github.com/launchthat/storefront/internal/platform/httpx"
)

// AccessDenied is the typed denial returned by the guards. It unwraps to
// httpx.ErrForbidden so handlers map it to a 403 response.
type AccessDenied struct {
	Permission Permission
	Reason     string
}

func (e *AccessDenied) Error() string {
	if e.Permission != "" {
		return fmt.Sprintf("%s: missing permission %q", e.Reason, e.Permission)
	}
	return e.Reason
}

func (e *AccessDenied) Unwrap() error {
	return httpx.ErrForbidden
}

// IsAccessDenied reports whether err is a guard denial.
func IsAccessDenied(err error) bool {
	var denied *AccessDenied
	return errors.As(err, &denied)
}

// RequirePermission fails with AccessDenied unless the principal's
// effective permission set contains perm.
func RequirePermission(p Principal, perm Permission) error {
	if EffectivePermissions(p).Has(perm) {
		return nil
	}
	return &AccessDenied{Permission: perm, Reason: "permission denied"}
}

// RequireOwnerOrPermission allows the resource owner through, and
// otherwise requires the broader permission (e.g. edit_any). Used for
// edit/delete/grant-management operations on owned resources.
func RequireOwnerOrPermission(p Principal, ownerID string, perm Permission) error {
	if p.Admin {
		return nil
	}
	if p.Authenticated() && p.UserID == ownerID {
		return nil
	}
	if EffectivePermissions(p).Has(perm) {
		return nil
	}
	return &AccessDenied{Permission: perm, Reason: "not the owner"}
}
