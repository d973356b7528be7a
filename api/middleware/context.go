package middleware

import (
	"context"

	"github.com/gaslink-africa/gaslink-backend/pkg/types"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the authenticated actor seeded by Auth.
func PrincipalFromContext(ctx context.Context) (types.Principal, bool) {
	if ctx == nil {
		return types.Principal{}, false
	}
	if p, ok := ctx.Value(ctxPrincipal).(types.Principal); ok {
		return p, true
	}
	return types.Principal{}, false
}

// WithPrincipal injects the authenticated actor into the context.
func WithPrincipal(ctx context.Context, p types.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}
