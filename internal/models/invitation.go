package models

import (
	"time"
)

// Invitation is an org admin's offer to bind an email address to an
// organization with a given role. Only a bcrypt hash of the invitation token
// is stored; the plaintext token travels once, in the email.
type Invitation struct {
	ID             string
	OrganizationID string
	Email          string
	Role           string
	TokenHash      string
	InvitedBy      string
	AcceptedAt     *time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// Accepted reports whether the invitation has already been redeemed.
func (i *Invitation) Accepted() bool {
	return i.AcceptedAt != nil
}

// Expired reports whether the invitation is past its expiry at the given time.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
