package middleware

import (
	"net/http"

	"github.com/anayu15/mi-gestor-sub003/internal/auth"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

// RequireScope rejects requests whose key lacks all of the given scopes.
// Admin implies every scope. It must run after Auth.
func RequireScope(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.FromContext(r.Context())
			if authCtx == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			for _, scope := range required {
				if authCtx.HasScope(scope) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions. Required scope: "+required[0])
		})
	}
}

// RequireRead requires the read scope.
func RequireRead() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeRead)
}

// RequireWrite requires the write scope.
func RequireWrite() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeWrite)
}

// RequireAdmin requires the admin scope.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeAdmin)
}
