package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/compia/compia/internal/metrics"
	"github.com/compia/compia/internal/models"
	pkglogger "github.com/compia/compia/pkg/logger"
)

// IdentityUserRepository is the subset of the user repository the identity
// service needs.
type IdentityUserRepository interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, error)
}

// IdentityService maps externally-authenticated identities to local user
// records, creating one on first sight. It implements auth.UserResolver.
type IdentityService struct {
	repo   IdentityUserRepository
	logger *slog.Logger
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(repo IdentityUserRepository, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		repo:   repo,
		logger: logger,
	}
}

// ResolveUser returns the local user for an external identity,
// auto-provisioning a pending inspector record when none exists. The insert
// is idempotent, so concurrent first-requests for the same identity converge
// on a single row.
func (s *IdentityService) ResolveUser(ctx context.Context, externalID, email string) (*models.User, error) {
	user, err := s.repo.GetByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	user, err = s.repo.CreateIfAbsent(ctx, &models.User{
		ExternalID: externalID,
		Email:      email,
		Role:       models.RoleInspector,
		Status:     models.StatusPending,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("auto-provisioned user for new identity",
		slog.String("user_id", user.ID),
		slog.String("email", pkglogger.SanitizedEmail(email)))
	metrics.UsersProvisioned.Inc()

	return user, nil
}
