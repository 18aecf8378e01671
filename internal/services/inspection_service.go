package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/compia/compia/internal/models"
)

// InspectionRepository defines the interface for inspection data access
type InspectionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Inspection, error)
	ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*models.Inspection, error)
	ListByInspector(ctx context.Context, inspectorID string, limit, offset int) ([]*models.Inspection, error)
	Create(ctx context.Context, insp *models.Inspection) (*models.Inspection, error)
	Update(ctx context.Context, id string, insp *models.Inspection) (*models.Inspection, error)
	Delete(ctx context.Context, id string) error
}

// InspectionService handles the compliance inspection lifecycle
type InspectionService struct {
	repo   InspectionRepository
	logger *slog.Logger
}

// NewInspectionService creates a new InspectionService
func NewInspectionService(repo InspectionRepository, logger *slog.Logger) *InspectionService {
	return &InspectionService{
		repo:   repo,
		logger: logger,
	}
}

// ScheduleInspection creates a new inspection in the scheduled state
func (s *InspectionService) ScheduleInspection(ctx context.Context, orgID, checklistID, inspectorID, location string, scheduledFor time.Time) (*models.Inspection, error) {
	insp := &models.Inspection{
		OrganizationID: orgID,
		ChecklistID:    checklistID,
		InspectorID:    inspectorID,
		Location:       location,
		ScheduledFor:   scheduledFor,
		Status:         models.InspectionScheduled,
		Responses:      json.RawMessage(`{}`),
	}

	created, err := s.repo.Create(ctx, insp)
	if err != nil {
		s.logger.Error("failed to schedule inspection",
			slog.String("organization_id", orgID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("inspection scheduled",
		slog.String("inspection_id", created.ID),
		slog.String("organization_id", orgID),
		slog.String("inspector_id", inspectorID))

	return created, nil
}

// GetInspection retrieves an inspection scoped to the caller's organization
func (s *InspectionService) GetInspection(ctx context.Context, orgID, id string) (*models.Inspection, error) {
	insp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get inspection", slog.String("inspection_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Cross-tenant reads look like missing records, not forbidden ones.
	if insp.OrganizationID != orgID {
		return nil, models.ErrNotFound
	}

	return insp, nil
}

// ListInspections returns an organization's inspections, newest first
func (s *InspectionService) ListInspections(ctx context.Context, orgID string, limit, offset int) ([]*models.Inspection, error) {
	inspections, err := s.repo.ListByOrganization(ctx, orgID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list inspections", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return inspections, nil
}

// ListAssignedInspections returns the inspections assigned to an inspector
func (s *InspectionService) ListAssignedInspections(ctx context.Context, inspectorID string, limit, offset int) ([]*models.Inspection, error) {
	inspections, err := s.repo.ListByInspector(ctx, inspectorID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list assigned inspections", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return inspections, nil
}

// TransitionInspection moves an inspection along its lifecycle. Completing an
// inspection records the responses and the completion time.
func (s *InspectionService) TransitionInspection(ctx context.Context, orgID, id, status string, responses json.RawMessage) (*models.Inspection, error) {
	insp, err := s.GetInspection(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if !insp.CanTransitionTo(status) {
		s.logger.Info("rejected inspection transition",
			slog.String("inspection_id", id),
			slog.String("from", insp.Status),
			slog.String("to", status))
		return nil, models.ErrBadRequest
	}

	insp.Status = status
	if status == models.InspectionCompleted {
		now := time.Now()
		insp.CompletedAt = &now
		if len(responses) > 0 {
			insp.Responses = responses
		}
	}

	updated, err := s.repo.Update(ctx, id, insp)
	if err != nil {
		s.logger.Error("failed to transition inspection", slog.String("inspection_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

// SaveResponses stores partial checklist responses for an in-progress inspection
func (s *InspectionService) SaveResponses(ctx context.Context, orgID, id string, responses json.RawMessage) (*models.Inspection, error) {
	insp, err := s.GetInspection(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if insp.Status != models.InspectionInProgress {
		return nil, models.ErrBadRequest
	}

	insp.Responses = responses
	updated, err := s.repo.Update(ctx, id, insp)
	if err != nil {
		s.logger.Error("failed to save inspection responses", slog.String("inspection_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

// DeleteInspection removes an inspection scoped to the caller's organization
func (s *InspectionService) DeleteInspection(ctx context.Context, orgID, id string) error {
	if _, err := s.GetInspection(ctx, orgID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete inspection", slog.String("inspection_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}
