package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/compia/compia/internal/models"
)

type MockInvitationRepository struct {
	CreateFunc             func(ctx context.Context, inv *models.Invitation) (*models.Invitation, error)
	GetByIDFunc            func(ctx context.Context, id string) (*models.Invitation, error)
	GetPendingByEmailFunc  func(ctx context.Context, email string) (*models.Invitation, error)
	ListByOrganizationFunc func(ctx context.Context, orgID string, limit, offset int) ([]*models.Invitation, error)
	MarkAcceptedFunc       func(ctx context.Context, id string) error
	RevokeFunc             func(ctx context.Context, id string) error
}

func (m *MockInvitationRepository) Create(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	return m.CreateFunc(ctx, inv)
}

func (m *MockInvitationRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockInvitationRepository) GetPendingByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	return m.GetPendingByEmailFunc(ctx, email)
}

func (m *MockInvitationRepository) ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*models.Invitation, error) {
	return m.ListByOrganizationFunc(ctx, orgID, limit, offset)
}

func (m *MockInvitationRepository) MarkAccepted(ctx context.Context, id string) error {
	return m.MarkAcceptedFunc(ctx, id)
}

func (m *MockInvitationRepository) Revoke(ctx context.Context, id string) error {
	return m.RevokeFunc(ctx, id)
}

type MockInvitationUserRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.User, error)
	BindToOrganizationFunc func(ctx context.Context, userID, orgID, role string) (*models.User, error)
}

func (m *MockInvitationUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockInvitationUserRepository) BindToOrganization(ctx context.Context, userID, orgID, role string) (*models.User, error) {
	return m.BindToOrganizationFunc(ctx, userID, orgID, role)
}

type MockEmailService struct {
	SendInvitationEmailFunc func(ctx context.Context, email, orgName, token string, expiresAt time.Time) error
}

func (m *MockEmailService) SendInvitationEmail(ctx context.Context, email, orgName, token string, expiresAt time.Time) error {
	return m.SendInvitationEmailFunc(ctx, email, orgName, token, expiresAt)
}

func hashToken(t *testing.T, token string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestInvitationService_CreateInvitation_StoresHashNotToken(t *testing.T) {
	var stored *models.Invitation
	var emailedToken string

	repo := &MockInvitationRepository{
		CreateFunc: func(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
			stored = inv
			inv.ID = "inv-1"
			return inv, nil
		},
	}
	email := &MockEmailService{
		SendInvitationEmailFunc: func(ctx context.Context, email, orgName, token string, expiresAt time.Time) error {
			emailedToken = token
			return nil
		},
	}

	svc := NewInvitationService(repo, &MockInvitationUserRepository{}, email, 0, slog.Default())
	inv, err := svc.CreateInvitation(context.Background(), "org-1", "Acme Audits", "new@example.com", models.RoleInspector, "admin-1")

	require.NoError(t, err)
	require.NotEmpty(t, emailedToken)
	assert.NotEqual(t, emailedToken, stored.TokenHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.TokenHash), []byte(emailedToken)))
	assert.Equal(t, "org-1", inv.OrganizationID)
	assert.WithinDuration(t, time.Now().Add(defaultInvitationTTL), inv.ExpiresAt, time.Minute)
}

func TestInvitationService_CreateInvitation_RejectsSystemAdminRole(t *testing.T) {
	svc := NewInvitationService(&MockInvitationRepository{}, &MockInvitationUserRepository{}, &MockEmailService{}, 0, slog.Default())

	_, err := svc.CreateInvitation(context.Background(), "org-1", "Acme Audits", "new@example.com", models.RoleSystemAdmin, "admin-1")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestInvitationService_CreateInvitation_SurvivesEmailFailure(t *testing.T) {
	repo := &MockInvitationRepository{
		CreateFunc: func(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
			inv.ID = "inv-1"
			return inv, nil
		},
	}
	email := &MockEmailService{
		SendInvitationEmailFunc: func(ctx context.Context, email, orgName, token string, expiresAt time.Time) error {
			return errors.New("ses unavailable")
		},
	}

	svc := NewInvitationService(repo, &MockInvitationUserRepository{}, email, 0, slog.Default())
	inv, err := svc.CreateInvitation(context.Background(), "org-1", "Acme Audits", "new@example.com", models.RoleInspector, "admin-1")

	require.NoError(t, err)
	assert.Equal(t, "inv-1", inv.ID)
}

func TestInvitationService_AcceptInvitation_BindsUser(t *testing.T) {
	token := "plain-token"
	var boundOrg, boundRole string

	repo := &MockInvitationRepository{
		GetPendingByEmailFunc: func(ctx context.Context, email string) (*models.Invitation, error) {
			return &models.Invitation{
				ID:             "inv-1",
				OrganizationID: "org-1",
				Role:           models.RoleInspector,
				TokenHash:      hashToken(t, token),
				ExpiresAt:      time.Now().Add(time.Hour),
			}, nil
		},
		MarkAcceptedFunc: func(ctx context.Context, id string) error {
			return nil
		},
	}
	users := &MockInvitationUserRepository{
		BindToOrganizationFunc: func(ctx context.Context, userID, orgID, role string) (*models.User, error) {
			boundOrg, boundRole = orgID, role
			return &models.User{ID: userID, OrganizationID: &orgID, Role: role, Status: models.StatusActive}, nil
		},
	}

	svc := NewInvitationService(repo, users, &MockEmailService{}, 0, slog.Default())
	user, err := svc.AcceptInvitation(context.Background(), "user-1", "new@example.com", token)

	require.NoError(t, err)
	assert.Equal(t, "org-1", boundOrg)
	assert.Equal(t, models.RoleInspector, boundRole)
	assert.Equal(t, models.StatusActive, user.Status)
}

func TestInvitationService_AcceptInvitation_WrongToken(t *testing.T) {
	repo := &MockInvitationRepository{
		GetPendingByEmailFunc: func(ctx context.Context, email string) (*models.Invitation, error) {
			return &models.Invitation{
				ID:        "inv-1",
				TokenHash: hashToken(t, "real-token"),
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}

	svc := NewInvitationService(repo, &MockInvitationUserRepository{}, &MockEmailService{}, 0, slog.Default())
	_, err := svc.AcceptInvitation(context.Background(), "user-1", "new@example.com", "guessed-token")

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestInvitationService_AcceptInvitation_Expired(t *testing.T) {
	repo := &MockInvitationRepository{
		GetPendingByEmailFunc: func(ctx context.Context, email string) (*models.Invitation, error) {
			return &models.Invitation{
				ID:        "inv-1",
				TokenHash: hashToken(t, "token"),
				ExpiresAt: time.Now().Add(-time.Hour),
			}, nil
		},
	}

	svc := NewInvitationService(repo, &MockInvitationUserRepository{}, &MockEmailService{}, 0, slog.Default())
	_, err := svc.AcceptInvitation(context.Background(), "user-1", "new@example.com", "token")

	assert.ErrorIs(t, err, models.ErrInvitationExpired)
}

func TestInvitationService_AcceptInvitation_SecondRedeemerLoses(t *testing.T) {
	token := "plain-token"
	bindCalled := false

	repo := &MockInvitationRepository{
		GetPendingByEmailFunc: func(ctx context.Context, email string) (*models.Invitation, error) {
			return &models.Invitation{
				ID:        "inv-1",
				TokenHash: hashToken(t, token),
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		MarkAcceptedFunc: func(ctx context.Context, id string) error {
			return models.ErrInvitationUsed
		},
	}
	users := &MockInvitationUserRepository{
		BindToOrganizationFunc: func(ctx context.Context, userID, orgID, role string) (*models.User, error) {
			bindCalled = true
			return nil, nil
		},
	}

	svc := NewInvitationService(repo, users, &MockEmailService{}, 0, slog.Default())
	_, err := svc.AcceptInvitation(context.Background(), "user-1", "new@example.com", token)

	assert.ErrorIs(t, err, models.ErrInvitationUsed)
	assert.False(t, bindCalled)
}

func TestInvitationService_RevokeInvitation_WrongTenant(t *testing.T) {
	repo := &MockInvitationRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Invitation, error) {
			return &models.Invitation{ID: id, OrganizationID: "org-2"}, nil
		},
	}

	svc := NewInvitationService(repo, &MockInvitationUserRepository{}, &MockEmailService{}, 0, slog.Default())
	err := svc.RevokeInvitation(context.Background(), "org-1", "inv-1")

	assert.ErrorIs(t, err, models.ErrForbidden)
}
