package auth

import "context"

type claimsKey struct{}

// WithClaims stores verified token claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the claims placed in ctx by the auth middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// UserID returns the authenticated user's id, or 0.
func UserID(ctx context.Context) uint {
	if c, ok := ClaimsFrom(ctx); ok {
		return c.UserID
	}
	return 0
}
