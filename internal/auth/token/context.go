package token

import "context"

// claimsContextKey is the context key under which verified claims are
// attached to the request context. Downstream handlers read the identity
// through ClaimsFromContext; nothing is attached ad hoc to the request.
type claimsContextKey struct{}

// ContextWithClaims returns a context carrying the verified claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext returns the verified claims attached to the context, if
// any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok
}
