package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/compia/compia/internal/auth"
	"github.com/compia/compia/internal/models"
	"github.com/compia/compia/internal/repositories"
)

// StatsRepository defines the interface for platform aggregate reads
type StatsRepository interface {
	PlatformStats(ctx context.Context) (*repositories.PlatformStats, error)
	InspectionVolumeByDay(ctx context.Context, days int) ([]repositories.InspectionVolume, error)
}

// TOTPRepository defines the interface for admin TOTP enrollment storage
type TOTPRepository interface {
	Upsert(ctx context.Context, enrollment *models.TOTPEnrollment) error
	Get(ctx context.Context, userID string) (*models.TOTPEnrollment, error)
	MarkVerified(ctx context.Context, userID string) error
	ConsumeStep(ctx context.Context, userID string, step int64) (bool, error)
}

// AdminService backs the system-admin console: platform aggregates plus the
// TOTP step-up that guards them.
type AdminService struct {
	stats  StatsRepository
	totp   TOTPRepository
	codes  *auth.TOTPManager
	logger *slog.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(stats StatsRepository, totp TOTPRepository, codes *auth.TOTPManager, logger *slog.Logger) *AdminService {
	return &AdminService{
		stats:  stats,
		totp:   totp,
		codes:  codes,
		logger: logger,
	}
}

// GetPlatformStats returns the admin dashboard aggregates
func (s *AdminService) GetPlatformStats(ctx context.Context) (*repositories.PlatformStats, error) {
	stats, err := s.stats.PlatformStats(ctx)
	if err != nil {
		s.logger.Error("failed to load platform stats", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return stats, nil
}

// GetInspectionVolume returns daily inspection counts for the trailing window
func (s *AdminService) GetInspectionVolume(ctx context.Context, days int) ([]repositories.InspectionVolume, error) {
	if days <= 0 || days > 90 {
		days = 30
	}

	volumes, err := s.stats.InspectionVolumeByDay(ctx, days)
	if err != nil {
		s.logger.Error("failed to load inspection volume", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return volumes, nil
}

// EnrollTOTP generates a fresh TOTP secret for the admin and stores it
// encrypted. The plaintext secret and QR code are returned once and never
// persisted.
func (s *AdminService) EnrollTOTP(ctx context.Context, userID, email string) (*auth.Enrollment, error) {
	enrollment, err := s.codes.GenerateEnrollment(email)
	if err != nil {
		s.logger.Error("failed to generate TOTP enrollment", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	record := &models.TOTPEnrollment{
		UserID:          userID,
		EncryptedSecret: enrollment.EncryptedSecret,
		Nonce:           enrollment.Nonce,
	}

	if err := s.totp.Upsert(ctx, record); err != nil {
		s.logger.Error("failed to store TOTP enrollment", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("admin TOTP enrollment created", slog.String("user_id", userID))
	return enrollment, nil
}

// VerifyEnrollment confirms a new enrollment with its first code. The step
// the code validated at is consumed so it cannot be replayed as a step-up.
func (s *AdminService) VerifyEnrollment(ctx context.Context, userID, code string) error {
	if err := s.checkCode(ctx, userID, code, false); err != nil {
		return err
	}

	if err := s.totp.MarkVerified(ctx, userID); err != nil {
		s.logger.Error("failed to mark TOTP enrollment verified", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}

// VerifyStepUp validates a TOTP code for an already-verified enrollment.
// Admin console routes call this before serving anything sensitive.
func (s *AdminService) VerifyStepUp(ctx context.Context, userID, code string) error {
	return s.checkCode(ctx, userID, code, true)
}

func (s *AdminService) checkCode(ctx context.Context, userID, code string, requireVerified bool) error {
	enrollment, err := s.totp.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrTOTPRequired
		}
		s.logger.Error("failed to load TOTP enrollment", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if requireVerified && !enrollment.Verified {
		return models.ErrTOTPRequired
	}

	secret, err := s.codes.DecryptSecret(enrollment.EncryptedSecret, enrollment.Nonce)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	valid, step := s.codes.ValidateCode(secret, code)
	if !valid {
		s.logger.Warn("invalid TOTP code", slog.String("user_id", userID))
		return models.ErrTOTPInvalid
	}

	consumed, err := s.totp.ConsumeStep(ctx, userID, step)
	if err != nil {
		s.logger.Error("failed to consume TOTP step", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !consumed {
		s.logger.Warn("replayed TOTP code", slog.String("user_id", userID))
		return models.ErrTOTPReplayed
	}

	return nil
}
