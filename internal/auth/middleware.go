package auth

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userKey contextKey = "user"
	roleKey contextKey = "role"
)

// Middleware enforces a valid bearer token carrying at least the given
// role. Admins pass scanner-gated routes; scanners do not pass
// admin-gated ones.
func Middleware(secret, minimumRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
				return
			}

			subject, role, err := ParseToken(secret, tokenString)
			if err != nil {
				http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
				return
			}

			if minimumRole == RoleAdmin && role != RoleAdmin {
				http.Error(w, "Forbidden: admin access required", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, subject)
			ctx = context.WithValue(ctx, roleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// User returns the authenticated username from the request context.
func User(ctx context.Context) string {
	if u, ok := ctx.Value(userKey).(string); ok {
		return u
	}
	return ""
}

// Role returns the authenticated role from the request context.
func Role(ctx context.Context) string {
	if r, ok := ctx.Value(roleKey).(string); ok {
		return r
	}
	return ""
}
