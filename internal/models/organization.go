package models

import (
	"time"
)

type Organization struct {
	ID        string
	Name      string
	Slug      string
	PlanID    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
