package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func requestWithPrincipal(p Principal) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	return r.WithContext(ContextWithPrincipal(r.Context(), p))
}

func TestRequireAuthenticated(t *testing.T) {
	mw := Middleware{}
	h := mw.RequireAuthenticated(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithPrincipal(Principal{}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithPrincipal(Principal{UserID: "user-1"}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAnyChecksEffectivePermissions(t *testing.T) {
	mw := Middleware{}
	h := mw.RequireAny(PermManagePermissions)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithPrincipal(Principal{UserID: "user-1", DownloadRole: RoleViewer}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithPrincipal(Principal{UserID: "user-1", Admin: true}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	mw := Middleware{}
	h := mw.RequireAdmin(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithPrincipal(Principal{UserID: "user-1", DownloadRole: RoleManager}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithPrincipal(Principal{UserID: "root", Admin: true}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
