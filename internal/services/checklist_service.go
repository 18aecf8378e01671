package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/compia/compia/internal/models"
)

// ChecklistRepository defines the interface for checklist template data access
type ChecklistRepository interface {
	GetByID(ctx context.Context, id string) (*models.Checklist, error)
	ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*models.Checklist, error)
	Create(ctx context.Context, cl *models.Checklist) (*models.Checklist, error)
	Update(ctx context.Context, id string, cl *models.Checklist) (*models.Checklist, error)
	Delete(ctx context.Context, id string) error
}

// ChecklistService manages inspection checklist templates
type ChecklistService struct {
	repo   ChecklistRepository
	logger *slog.Logger
}

// NewChecklistService creates a new ChecklistService
func NewChecklistService(repo ChecklistRepository, logger *slog.Logger) *ChecklistService {
	return &ChecklistService{
		repo:   repo,
		logger: logger,
	}
}

// CreateChecklist stores a new checklist template for an organization
func (s *ChecklistService) CreateChecklist(ctx context.Context, orgID, createdBy, title, description string, sections json.RawMessage) (*models.Checklist, error) {
	if strings.TrimSpace(title) == "" || !json.Valid(sections) {
		return nil, models.ErrBadRequest
	}

	cl := &models.Checklist{
		OrganizationID: orgID,
		Title:          title,
		Description:    description,
		Sections:       sections,
		CreatedBy:      createdBy,
	}

	created, err := s.repo.Create(ctx, cl)
	if err != nil {
		s.logger.Error("failed to create checklist",
			slog.String("organization_id", orgID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return created, nil
}

// GetChecklist retrieves a checklist scoped to the caller's organization
func (s *ChecklistService) GetChecklist(ctx context.Context, orgID, id string) (*models.Checklist, error) {
	cl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get checklist", slog.String("checklist_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if cl.OrganizationID != orgID {
		return nil, models.ErrNotFound
	}

	return cl, nil
}

// ListChecklists returns an organization's checklist templates
func (s *ChecklistService) ListChecklists(ctx context.Context, orgID string, limit, offset int) ([]*models.Checklist, error) {
	checklists, err := s.repo.ListByOrganization(ctx, orgID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list checklists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return checklists, nil
}

// UpdateChecklist updates a checklist's title, description and sections
func (s *ChecklistService) UpdateChecklist(ctx context.Context, orgID, id string, update *models.Checklist) (*models.Checklist, error) {
	existing, err := s.GetChecklist(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if update.Title != "" {
		existing.Title = update.Title
	}
	if update.Description != "" {
		existing.Description = update.Description
	}
	if len(update.Sections) > 0 {
		if !json.Valid(update.Sections) {
			return nil, models.ErrBadRequest
		}
		existing.Sections = update.Sections
	}

	updated, err := s.repo.Update(ctx, id, existing)
	if err != nil {
		s.logger.Error("failed to update checklist", slog.String("checklist_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

// DeleteChecklist removes a checklist scoped to the caller's organization
func (s *ChecklistService) DeleteChecklist(ctx context.Context, orgID, id string) error {
	if _, err := s.GetChecklist(ctx, orgID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete checklist", slog.String("checklist_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}
