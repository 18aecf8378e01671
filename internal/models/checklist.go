package models

import (
	"encoding/json"
	"time"
)

// Checklist is a reusable inspection template. Sections is stored as JSONB;
// the backend treats its internal structure as opaque beyond validation that
// it is well-formed JSON.
type Checklist struct {
	ID             string
	OrganizationID string
	Title          string
	Description    string
	Sections       json.RawMessage
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
