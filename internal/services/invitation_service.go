package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/compia/compia/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// defaultInvitationTTL is used when the caller does not supply an expiry.
const defaultInvitationTTL = 72 * time.Hour

// InvitationRepository defines the interface for invitation data access
type InvitationRepository interface {
	Create(ctx context.Context, inv *models.Invitation) (*models.Invitation, error)
	GetByID(ctx context.Context, id string) (*models.Invitation, error)
	GetPendingByEmail(ctx context.Context, email string) (*models.Invitation, error)
	ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*models.Invitation, error)
	MarkAccepted(ctx context.Context, id string) error
	Revoke(ctx context.Context, id string) error
}

// InvitationUserRepository is the slice of user storage the invitation flow
// needs to bind an accepted invitee to their organization.
type InvitationUserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	BindToOrganization(ctx context.Context, userID, orgID, role string) (*models.User, error)
}

// InvitationService manages the invite-and-accept flow for tenant membership
type InvitationService struct {
	repo   InvitationRepository
	users  InvitationUserRepository
	email  EmailService
	ttl    time.Duration
	logger *slog.Logger
}

// NewInvitationService creates a new InvitationService. A non-positive ttl
// falls back to the default invitation lifetime.
func NewInvitationService(repo InvitationRepository, users InvitationUserRepository, email EmailService, ttl time.Duration, logger *slog.Logger) *InvitationService {
	if ttl <= 0 {
		ttl = defaultInvitationTTL
	}
	return &InvitationService{
		repo:   repo,
		users:  users,
		email:  email,
		ttl:    ttl,
		logger: logger,
	}
}

// CreateInvitation records an invitation and emails the plaintext token to the
// invitee. Only the bcrypt hash of the token is persisted.
func (s *InvitationService) CreateInvitation(ctx context.Context, orgID, orgName, email, role, invitedBy string) (*models.Invitation, error) {
	if !models.ValidRole(role) || role == models.RoleSystemAdmin {
		return nil, models.ErrBadRequest
	}

	token := uuid.New().String()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash invitation token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	inv := &models.Invitation{
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		TokenHash:      string(hash),
		InvitedBy:      invitedBy,
		ExpiresAt:      time.Now().Add(s.ttl),
	}

	created, err := s.repo.Create(ctx, inv)
	if err != nil {
		s.logger.Error("failed to create invitation",
			slog.String("organization_id", orgID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.email.SendInvitationEmail(ctx, email, orgName, token, created.ExpiresAt); err != nil {
		// The invitation stands; the admin can revoke and re-invite if the
		// email never arrives.
		s.logger.Error("invitation created but email delivery failed",
			slog.String("invitation_id", created.ID),
			slog.Any("error", err))
	}

	return created, nil
}

// AcceptInvitation redeems a pending invitation for the authenticated user.
// The invitation is looked up by the caller's verified email and the token is
// checked against the stored hash, so a leaked token alone is not enough.
func (s *InvitationService) AcceptInvitation(ctx context.Context, userID, email, token string) (*models.User, error) {
	inv, err := s.repo.GetPendingByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up invitation", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if inv.Expired(time.Now()) {
		return nil, models.ErrInvitationExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(inv.TokenHash), []byte(token)) != nil {
		s.logger.Warn("invitation token mismatch",
			slog.String("invitation_id", inv.ID),
			slog.String("user_id", userID))
		return nil, models.ErrUnauthorized
	}

	// First-wins: MarkAccepted only succeeds for the first redeemer.
	if err := s.repo.MarkAccepted(ctx, inv.ID); err != nil {
		if errors.Is(err, models.ErrInvitationUsed) {
			return nil, models.ErrInvitationUsed
		}
		s.logger.Error("failed to mark invitation accepted",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.users.BindToOrganization(ctx, userID, inv.OrganizationID, inv.Role)
	if err != nil {
		s.logger.Error("failed to bind user to organization",
			slog.String("user_id", userID),
			slog.String("organization_id", inv.OrganizationID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("invitation accepted",
		slog.String("invitation_id", inv.ID),
		slog.String("user_id", userID),
		slog.String("organization_id", inv.OrganizationID))

	return user, nil
}

// ListInvitations returns an organization's invitations, newest first
func (s *InvitationService) ListInvitations(ctx context.Context, orgID string, limit, offset int) ([]*models.Invitation, error) {
	invitations, err := s.repo.ListByOrganization(ctx, orgID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list invitations", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return invitations, nil
}

// RevokeInvitation cancels a pending invitation. The caller must belong to
// the invitation's organization.
func (s *InvitationService) RevokeInvitation(ctx context.Context, orgID, invitationID string) error {
	inv, err := s.repo.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to load invitation", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if inv.OrganizationID != orgID {
		return models.ErrForbidden
	}

	if err := s.repo.Revoke(ctx, invitationID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to revoke invitation", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}
