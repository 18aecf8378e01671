package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compia/compia/internal/models"
)

type MockOrganizationRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Organization, error)
	ListFunc    func(ctx context.Context, limit, offset int) ([]*models.Organization, error)
	CreateFunc  func(ctx context.Context, org *models.Organization) (*models.Organization, error)
	UpdateFunc  func(ctx context.Context, id string, org *models.Organization) (*models.Organization, error)
	DeleteFunc  func(ctx context.Context, id string) error
}

func (m *MockOrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockOrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	return m.ListFunc(ctx, limit, offset)
}

func (m *MockOrganizationRepository) Create(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	return m.CreateFunc(ctx, org)
}

func (m *MockOrganizationRepository) Update(ctx context.Context, id string, org *models.Organization) (*models.Organization, error) {
	return m.UpdateFunc(ctx, id, org)
}

func (m *MockOrganizationRepository) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-corp", Slugify("Acme Corp"))
	assert.Equal(t, "acme-co", Slugify("  Acme & Co!  "))
	assert.Equal(t, "safety-first-2026", Slugify("Safety First 2026"))
	assert.Equal(t, "", Slugify("---"))
}

func TestOrganizationService_CreateOrganization_DerivesSlug(t *testing.T) {
	var saved *models.Organization
	repo := &MockOrganizationRepository{
		CreateFunc: func(ctx context.Context, org *models.Organization) (*models.Organization, error) {
			saved = org
			org.ID = "org-1"
			return org, nil
		},
	}

	svc := NewOrganizationService(repo, slog.Default())
	org, err := svc.CreateOrganization(context.Background(), "Acme & Co", "plan-1")

	require.NoError(t, err)
	assert.Equal(t, "acme-co", saved.Slug)
	require.NotNil(t, org.PlanID)
	assert.Equal(t, "plan-1", *org.PlanID)
}

func TestOrganizationService_CreateOrganization_NoPlan(t *testing.T) {
	repo := &MockOrganizationRepository{
		CreateFunc: func(ctx context.Context, org *models.Organization) (*models.Organization, error) {
			return org, nil
		},
	}

	svc := NewOrganizationService(repo, slog.Default())
	org, err := svc.CreateOrganization(context.Background(), "Acme", "")

	require.NoError(t, err)
	assert.Nil(t, org.PlanID)
}

func TestOrganizationService_CreateOrganization_EmptyName(t *testing.T) {
	svc := NewOrganizationService(&MockOrganizationRepository{}, slog.Default())
	_, err := svc.CreateOrganization(context.Background(), "   ", "plan-1")

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestOrganizationService_CreateOrganization_DuplicateSlug(t *testing.T) {
	repo := &MockOrganizationRepository{
		CreateFunc: func(ctx context.Context, org *models.Organization) (*models.Organization, error) {
			return nil, models.ErrConflict
		},
	}

	svc := NewOrganizationService(repo, slog.Default())
	_, err := svc.CreateOrganization(context.Background(), "Acme", "plan-1")

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestOrganizationService_GetOrganization_RepoErrorMapped(t *testing.T) {
	repo := &MockOrganizationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Organization, error) {
			return nil, errors.New("connection refused")
		},
	}

	svc := NewOrganizationService(repo, slog.Default())
	org, err := svc.GetOrganization(context.Background(), "org-1")

	assert.Nil(t, org)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestOrganizationService_UpdateOrganization_NameOnly(t *testing.T) {
	planID := "plan-1"
	var saved *models.Organization
	repo := &MockOrganizationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Organization, error) {
			return &models.Organization{ID: id, Name: "Old Name", Slug: "old-name", PlanID: &planID}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, org *models.Organization) (*models.Organization, error) {
			saved = org
			return org, nil
		},
	}

	svc := NewOrganizationService(repo, slog.Default())
	updated, err := svc.UpdateOrganization(context.Background(), "org-1", &models.Organization{Name: "New Name"})

	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "new-name", updated.Slug)
	require.NotNil(t, saved.PlanID)
	assert.Equal(t, "plan-1", *saved.PlanID)
}

func TestOrganizationService_UpdateOrganization_PlanOnly(t *testing.T) {
	newPlan := "plan-2"
	var saved *models.Organization
	repo := &MockOrganizationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Organization, error) {
			return &models.Organization{ID: id, Name: "Acme", Slug: "acme"}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, org *models.Organization) (*models.Organization, error) {
			saved = org
			return org, nil
		},
	}

	svc := NewOrganizationService(repo, slog.Default())
	updated, err := svc.UpdateOrganization(context.Background(), "org-1", &models.Organization{PlanID: &newPlan})

	require.NoError(t, err)
	assert.Equal(t, "Acme", saved.Name)
	assert.Equal(t, "acme", saved.Slug)
	require.NotNil(t, updated.PlanID)
	assert.Equal(t, "plan-2", *updated.PlanID)
}

func TestOrganizationService_UpdateOrganization_NotFound(t *testing.T) {
	repo := &MockOrganizationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Organization, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := NewOrganizationService(repo, slog.Default())
	_, err := svc.UpdateOrganization(context.Background(), "missing", &models.Organization{Name: "New Name"})

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOrganizationService_DeleteOrganization_NotFound(t *testing.T) {
	repo := &MockOrganizationRepository{
		DeleteFunc: func(ctx context.Context, id string) error {
			return models.ErrNotFound
		},
	}

	svc := NewOrganizationService(repo, slog.Default())
	err := svc.DeleteOrganization(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}
