package middleware

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// TokenFromRequest returns the bearer credential from the Authorization
// header, falling back to the auth cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(config.AuthCookieName()); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate rejects requests without a valid token and stores the caller
// identity in the request context.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			response.Unauthorized(w, "Not authorized, no token")
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Unauthorized(w, "Not authorized, token failed")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), claims.Identity())))
	})
}

// OptionalAuth attaches the caller identity when a valid token is present
// and lets anonymous requests through. Browsers cannot set headers on a
// websocket handshake, so the "token" query parameter is accepted too.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != "" {
			if claims, err := auth.ValidateToken(token); err == nil {
				r = r.WithContext(auth.WithIdentity(r.Context(), claims.Identity()))
			}
		}
		next.ServeHTTP(w, r)
	})
}
