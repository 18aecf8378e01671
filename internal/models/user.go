package models

import (
	"time"
)

// Roles assignable to a user. The local users table is the source of truth
// for role, regardless of what the identity provider token carries.
const (
	RoleSystemAdmin = "system_admin"
	RoleOrgAdmin    = "org_admin"
	RoleInspector   = "inspector"
)

// User approval states. Auto-provisioned users start as pending and must be
// approved by an org admin before they can use non-public endpoints.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

type User struct {
	ID             string
	ExternalID     string // Subject from the identity provider token
	Email          string
	Name           string
	Role           string  // "system_admin", "org_admin", "inspector"
	Status         string  // "pending", "active", "suspended"
	OrganizationID *string // NULL until the user is bound to a tenant
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanAccess reports whether the user's approval state allows authenticated
// API access.
func (u *User) CanAccess() bool {
	return u.Status == StatusActive
}

// ValidRole reports whether role is one of the assignable roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystemAdmin, RoleOrgAdmin, RoleInspector:
		return true
	}
	return false
}
