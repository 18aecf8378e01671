package models

import (
	"encoding/json"
	"time"
)

// Inspection lifecycle states.
const (
	InspectionScheduled  = "scheduled"
	InspectionInProgress = "in_progress"
	InspectionCompleted  = "completed"
)

type Inspection struct {
	ID             string
	OrganizationID string
	ChecklistID    string
	InspectorID    string
	Location       string
	ScheduledFor   time.Time
	Status         string          // "scheduled", "in_progress", "completed"
	Responses      json.RawMessage // Checklist item responses, JSONB
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanTransitionTo enforces the scheduled -> in_progress -> completed lifecycle.
func (i *Inspection) CanTransitionTo(status string) bool {
	switch i.Status {
	case InspectionScheduled:
		return status == InspectionInProgress
	case InspectionInProgress:
		return status == InspectionCompleted
	}
	return false
}
