package httpx

import (
	"context"

	"github.com/aussiebroadwan/devhub/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyIdentityID ctxKey = "identity_id"
	CtxKeyClaims     ctxKey = "claims"
)

// IdentityIDFromContext returns the subject of the verified session token,
// or "" when the request is unauthenticated.
func IdentityIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(CtxKeyIdentityID).(string)
	return id
}

// ClaimsFromContext returns the verified session claims.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// ContextWithClaims stores verified claims the way AuthnMiddleware does.
func ContextWithClaims(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyIdentityID, c.Subject)
	return context.WithValue(ctx, CtxKeyClaims, c)
}
