// Package rbac gates routes on the caller's admin flag.
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// AdminOnly allows only callers whose token carries the admin flag.
// Must run after middleware.Authenticate.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			response.Unauthorized(w, "")
			return
		}
		if !id.IsAdmin {
			response.Forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
