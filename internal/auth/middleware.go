package auth

import (
	"net/http"

	"github.com/launchthat/storefront/internal/rbac"
	"github.com/launchthat/storefront/internal/shared"
)

// PrincipalMiddleware resolves the session user into an rbac.Principal
// on the request context. Requests without a session user carry the
// guest principal.
func PrincipalMiddleware(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := ""
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				userID = sess.User()
			}
			principal := service.Principal(r.Context(), userID)
			ctx := rbac.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
