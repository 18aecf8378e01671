package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/compia/compia/internal/metrics"
	"github.com/compia/compia/internal/models"
)

// RateLimitRepository defines the interface for rate limit bucket operations
type RateLimitRepository interface {
	Touch(ctx context.Context, key string, window time.Duration) (*models.RateLimitBucket, error)
}

// RateLimitConfig holds configuration for rate limiting behavior
type RateLimitConfig struct {
	BaseLimit int
	Window    time.Duration
	// Authenticated callers get BaseLimit * AuthenticatedMultiplier.
	AuthenticatedMultiplier int
}

// RateLimitService enforces the per-caller fixed-window limit against the
// shared bucket table. The table is the only cross-request state: no
// in-process counter survives between requests.
type RateLimitService struct {
	repo   RateLimitRepository
	config RateLimitConfig
	logger *slog.Logger
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(repo RateLimitRepository, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		repo:   repo,
		config: config,
		logger: logger,
	}
}

// EffectiveLimit returns the limit applied to a caller key.
func (s *RateLimitService) EffectiveLimit(authenticated bool) int {
	if authenticated {
		return s.config.BaseLimit * s.config.AuthenticatedMultiplier
	}
	return s.config.BaseLimit
}

// Check records one request against key and returns the verdict with the
// metadata the middleware surfaces as X-RateLimit-* headers.
//
// The limiter fails OPEN: a datastore error is logged and the request is
// allowed through. Availability wins over strict limiting when the
// enforcement mechanism itself is broken.
func (s *RateLimitService) Check(ctx context.Context, key string, authenticated bool) *models.RateLimitResult {
	limit := s.EffectiveLimit(authenticated)

	bucket, err := s.repo.Touch(ctx, key, s.config.Window)
	if err != nil {
		s.logger.Error("rate limit check failed, failing open",
			slog.String("key", key),
			slog.Any("error", err))
		metrics.RateLimitDecisions.WithLabelValues(metrics.RateLimitFailOpen).Inc()
		return &models.RateLimitResult{
			Allowed:    true,
			Limit:      limit,
			Remaining:  limit,
			Reset:      time.Now().Add(s.config.Window),
			FailedOpen: true,
		}
	}

	remaining := limit - bucket.Points
	if remaining < 0 {
		remaining = 0
	}

	result := &models.RateLimitResult{
		Allowed:   bucket.Points <= limit,
		Limit:     limit,
		Remaining: remaining,
		Reset:     bucket.ExpireAt,
	}

	if result.Allowed {
		metrics.RateLimitDecisions.WithLabelValues(metrics.RateLimitAllowed).Inc()
	} else {
		s.logger.Warn("rate limit exceeded",
			slog.String("key", key),
			slog.Int("points", bucket.Points),
			slog.Int("limit", limit))
		metrics.RateLimitDecisions.WithLabelValues(metrics.RateLimitRejected).Inc()
	}

	return result
}
