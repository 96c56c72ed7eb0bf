package common

import "context"

type ctxKey string

const principalKey ctxKey = "auth/principal"

// Principal is the authenticated terminal user attached to a request.
type Principal struct {
	UserID string
	Role   string
}

// WithPrincipal stores the authenticated principal on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom extracts the authenticated principal if present.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// UserID extracts just the authenticated user identifier.
func UserID(ctx context.Context) (string, bool) {
	p, ok := PrincipalFrom(ctx)
	return p.UserID, ok && p.UserID != ""
}
