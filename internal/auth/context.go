package auth

import (
	"context"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

type ctxKey struct{}

// WithAuth stores the authenticated principal on ctx.
func WithAuth(ctx context.Context, a *model.AuthContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the principal set by the auth middleware, or nil.
func FromContext(ctx context.Context) *model.AuthContext {
	a, _ := ctx.Value(ctxKey{}).(*model.AuthContext)
	return a
}

// UserID returns the authenticated user's id, "" when unauthenticated.
func UserID(ctx context.Context) string {
	if a := FromContext(ctx); a != nil {
		return a.UserID
	}
	return ""
}

// KeyID returns the id of the key that authenticated the request.
func KeyID(ctx context.Context) string {
	if a := FromContext(ctx); a != nil {
		return a.KeyID
	}
	return ""
}
