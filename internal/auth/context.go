package auth

import "context"

type ctxKey int

const (
	claimsKey ctxKey = iota
	tokenKey
)

// ContextWithClaims stores verified access-token claims in the context.
func ContextWithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext extracts verified claims placed by the authn middleware.
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*AccessClaims)
	return claims, ok
}

// ContextWithToken stores the raw bearer token for audit propagation.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the raw bearer token if present.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}

// SubjectFromContext returns the claim subject ("police" or the stringified
// account id) for audit logging.
func SubjectFromContext(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return claims.Subject, true
}
