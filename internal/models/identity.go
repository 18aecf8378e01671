package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// How an identity was established for the current request.
const (
	IdentitySourceBearer  = "bearer"
	IdentitySourceSession = "session"
)

// ProviderClaims are the claims COMPIA reads from an identity provider
// access token.
type ProviderClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the request-scoped result of auth resolution. It is rebuilt
// from credentials on every request and never cached across requests.
//
// UserID and Role are populated from the local user record when one exists;
// a request can carry a provider-derived identity with no local binding when
// auto-provisioning failed (the request still proceeds, without a role).
type Identity struct {
	Subject        string // Identity provider subject, or session token subject
	Email          string
	Source         string // "bearer" or "session"
	UserID         string
	Role           string
	Status         string
	OrganizationID *string
}

// Authenticated reports whether any identity was established.
func (id *Identity) Authenticated() bool {
	return id != nil && id.Subject != ""
}

// RateLimitKey returns the bucket key for this caller: the local user id when
// known, the provider subject otherwise.
func (id *Identity) RateLimitKey() string {
	if !id.Authenticated() {
		return ""
	}
	if id.UserID != "" {
		return "user:" + id.UserID
	}
	return "user:" + id.Subject
}

// HasRole reports whether the identity carries one of the given roles.
// system_admin implicitly satisfies every role check.
func (id *Identity) HasRole(roles ...string) bool {
	if !id.Authenticated() || id.Role == "" {
		return false
	}
	if id.Role == RoleSystemAdmin {
		return true
	}
	for _, role := range roles {
		if id.Role == role {
			return true
		}
	}
	return false
}
