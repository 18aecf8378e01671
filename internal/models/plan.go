package models

import (
	"time"
)

// Plan is a subscription plan row surfaced by the public pricing listing.
// Pricing business rules live outside this service; the backend only reads.
type Plan struct {
	ID                    string
	Name                  string
	PriceCents            int
	Currency              string
	MaxUsers              int
	MaxMonthlyInspections int
	Public                bool
	CreatedAt             time.Time
}
