package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/compia/compia/internal/models"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	List(ctx context.Context, limit, offset int) ([]*models.Organization, error)
	Create(ctx context.Context, org *models.Organization) (*models.Organization, error)
	Update(ctx context.Context, id string, org *models.Organization) (*models.Organization, error)
	Delete(ctx context.Context, id string) error
}

// OrganizationService handles tenant organization business logic
type OrganizationService struct {
	repo   OrganizationRepository
	logger *slog.Logger
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(repo OrganizationRepository, logger *slog.Logger) *OrganizationService {
	return &OrganizationService{
		repo:   repo,
		logger: logger,
	}
}

// Slugify derives a URL-safe slug from an organization name
func Slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// CreateOrganization registers a new tenant
func (s *OrganizationService) CreateOrganization(ctx context.Context, name, planID string) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.ErrBadRequest
	}

	org := &models.Organization{
		Name: name,
		Slug: Slugify(name),
	}
	if planID != "" {
		org.PlanID = &planID
	}

	created, err := s.repo.Create(ctx, org)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create organization", slog.String("name", name), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("organization created",
		slog.String("organization_id", created.ID),
		slog.String("slug", created.Slug))

	return created, nil
}

// GetOrganization retrieves an organization by ID
func (s *OrganizationService) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get organization", slog.String("organization_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return org, nil
}

// ListOrganizations returns all tenants, newest first
func (s *OrganizationService) ListOrganizations(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	orgs, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list organizations", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return orgs, nil
}

// UpdateOrganization updates an organization's name and plan
func (s *OrganizationService) UpdateOrganization(ctx context.Context, id string, update *models.Organization) (*models.Organization, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load organization for update", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if update.Name != "" {
		existing.Name = update.Name
		existing.Slug = Slugify(update.Name)
	}
	if update.PlanID != nil {
		existing.PlanID = update.PlanID
	}

	updated, err := s.repo.Update(ctx, id, existing)
	if err != nil {
		s.logger.Error("failed to update organization", slog.String("organization_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

// DeleteOrganization removes a tenant and, through foreign keys, its data
func (s *OrganizationService) DeleteOrganization(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete organization", slog.String("organization_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("organization deleted", slog.String("organization_id", id))
	return nil
}
