package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/compia/compia/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// UserService handles user business logic
type UserService struct {
	repo   UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// ListUsers retrieves users visible to the caller: the whole platform for a
// system admin, the caller's tenant for everyone else.
func (s *UserService) ListUsers(ctx context.Context, identity *models.Identity, limit, offset int) ([]*models.User, error) {
	var (
		users []*models.User
		err   error
	)

	if identity.Role == models.RoleSystemAdmin {
		users, err = s.repo.List(ctx, limit, offset)
	} else {
		if identity.OrganizationID == nil {
			return []*models.User{}, nil
		}
		users, err = s.repo.ListByOrganization(ctx, *identity.OrganizationID, limit, offset)
	}

	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return users, nil
}

// UpdateUser updates a user's name, role and status
func (s *UserService) UpdateUser(ctx context.Context, id string, update *models.User) (*models.User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load user for update", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if update.Name != "" {
		existing.Name = update.Name
	}
	if update.Role != "" {
		if !models.ValidRole(update.Role) {
			return nil, models.ErrBadRequest
		}
		existing.Role = update.Role
	}
	if update.Status != "" {
		existing.Status = update.Status
	}

	updated, err := s.repo.Update(ctx, id, existing)
	if err != nil {
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

// ApproveUser moves a pending user to active. A no-op for already-active
// accounts.
func (s *UserService) ApproveUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load user for approval", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.Status == models.StatusActive {
		return user, nil
	}

	user.Status = models.StatusActive
	updated, err := s.repo.Update(ctx, id, user)
	if err != nil {
		s.logger.Error("failed to approve user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user approved", slog.String("user_id", id))
	return updated, nil
}

// DeleteUser removes a user record
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}
