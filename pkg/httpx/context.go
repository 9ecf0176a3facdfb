package httpx

import (
	"context"

	"github.com/crewlane/memberd/pkg/identity"
)

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyIdentity ctxKey = "identity"
)

// IdentityFromContext returns the authenticated identity attached by
// AuthnMiddleware or OptionalAuthnMiddleware. ok is false on anonymous
// requests.
func IdentityFromContext(ctx context.Context) (identity.Claims, bool) {
	c, ok := ctx.Value(CtxKeyIdentity).(identity.Claims)
	return c, ok
}

// UserIDFromContext returns the authenticated user id, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return id
	}
	return ""
}
