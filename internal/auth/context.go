package auth

import (
	"context"
	"net/http"

	"github.com/compia/compia/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// IdentityContextKey is the key for storing the resolved identity in context
	IdentityContextKey contextKey = "identity"
)

// WithIdentity returns a copy of ctx carrying the resolved identity.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// IdentityFromContext extracts the resolved identity from ctx, or nil when
// the request is unauthenticated.
func IdentityFromContext(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(IdentityContextKey).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetIdentity extracts the resolved identity from a request.
func GetIdentity(r *http.Request) *models.Identity {
	return IdentityFromContext(r.Context())
}
