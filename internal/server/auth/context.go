package auth

import (
	"context"

	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/google/uuid"
)

// Identity is derived from a validated access token and its certificate.
// It lives for one request only.
type Identity struct {
	UserID   uuid.UUID       `json:"user_id"`
	Audience models.Audience `json:"audience"`
	JTI      uuid.UUID       `json:"jti"`
}

type identityKey struct{}

// WithIdentity returns a child context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the request guard,
// or nil when the request is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
