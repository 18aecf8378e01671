package services

import (
	"context"
	"log/slog"

	"github.com/compia/compia/internal/models"
)

// PlanRepository defines the interface for subscription plan reads
type PlanRepository interface {
	ListPublic(ctx context.Context) ([]*models.Plan, error)
}

// PlanService serves the public pricing listing
type PlanService struct {
	repo   PlanRepository
	logger *slog.Logger
}

// NewPlanService creates a new PlanService
func NewPlanService(repo PlanRepository, logger *slog.Logger) *PlanService {
	return &PlanService{
		repo:   repo,
		logger: logger,
	}
}

// ListPublicPlans returns the plans shown on the unauthenticated pricing page
func (s *PlanService) ListPublicPlans(ctx context.Context) ([]*models.Plan, error) {
	plans, err := s.repo.ListPublic(ctx)
	if err != nil {
		s.logger.Error("failed to list public plans", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return plans, nil
}
