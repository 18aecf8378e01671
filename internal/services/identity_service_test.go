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

type MockIdentityUserRepository struct {
	GetByExternalIDFunc func(ctx context.Context, externalID string) (*models.User, error)
	CreateIfAbsentFunc  func(ctx context.Context, user *models.User) (*models.User, error)
	createCalls         int
}

func (m *MockIdentityUserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return m.GetByExternalIDFunc(ctx, externalID)
}

func (m *MockIdentityUserRepository) CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, error) {
	m.createCalls++
	return m.CreateIfAbsentFunc(ctx, user)
}

func TestIdentityService_ReturnsExistingUser(t *testing.T) {
	existing := &models.User{ID: "u1", ExternalID: "sub-1", Role: models.RoleOrgAdmin, Status: models.StatusActive}
	repo := &MockIdentityUserRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.User, error) {
			return existing, nil
		},
	}

	svc := NewIdentityService(repo, slog.Default())
	user, err := svc.ResolveUser(context.Background(), "sub-1", "a@example.com")

	assert.NoError(t, err)
	assert.Same(t, existing, user)
	assert.Zero(t, repo.createCalls, "no provisioning for known identities")
}

func TestIdentityService_ProvisionsNewUserAsPendingInspector(t *testing.T) {
	repo := &MockIdentityUserRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		CreateIfAbsentFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "u-new"
			return user, nil
		},
	}

	svc := NewIdentityService(repo, slog.Default())
	user, err := svc.ResolveUser(context.Background(), "sub-new", "new@example.com")

	require.NoError(t, err)
	assert.Equal(t, "u-new", user.ID)
	assert.Equal(t, models.RoleInspector, user.Role)
	assert.Equal(t, models.StatusPending, user.Status)
	assert.Equal(t, 1, repo.createCalls)
}

func TestIdentityService_PropagatesLookupError(t *testing.T) {
	repo := &MockIdentityUserRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.User, error) {
			return nil, errors.New("db unavailable")
		},
	}

	svc := NewIdentityService(repo, slog.Default())
	user, err := svc.ResolveUser(context.Background(), "sub-1", "a@example.com")

	assert.Error(t, err)
	assert.Nil(t, user)
	assert.Zero(t, repo.createCalls, "no provisioning on infrastructure errors")
}

func TestIdentityService_PropagatesCreateError(t *testing.T) {
	repo := &MockIdentityUserRepository{
		GetByExternalIDFunc: func(ctx context.Context, externalID string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		CreateIfAbsentFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			return nil, errors.New("insert failed")
		},
	}

	svc := NewIdentityService(repo, slog.Default())
	user, err := svc.ResolveUser(context.Background(), "sub-1", "a@example.com")

	assert.Error(t, err)
	assert.Nil(t, user)
}
