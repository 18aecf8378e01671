package repositories

import (
	"context"
	"time"

	"github.com/compia/compia/internal/database"
	"github.com/compia/compia/internal/models"
)

type TOTPRepository struct {
	db database.Querier
}

func NewTOTPRepository(db *database.DB) *TOTPRepository {
	return &TOTPRepository{db: db.Pool}
}

// Upsert stores or replaces the admin's TOTP enrollment. Re-enrolling resets
// verification and the replay guard.
func (r *TOTPRepository) Upsert(ctx context.Context, enrollment *models.TOTPEnrollment) error {
	query := `
		INSERT INTO admin_totp_enrollments (user_id, encrypted_secret, nonce, verified, last_used_step, created_at, updated_at)
		VALUES ($1, $2, $3, false, 0, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			encrypted_secret = EXCLUDED.encrypted_secret,
			nonce = EXCLUDED.nonce,
			verified = false,
			last_used_step = 0,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		enrollment.UserID, enrollment.EncryptedSecret, enrollment.Nonce, time.Now(),
	)
	return database.MapPostgresError(err)
}

func (r *TOTPRepository) Get(ctx context.Context, userID string) (*models.TOTPEnrollment, error) {
	query := `
		SELECT user_id, encrypted_secret, nonce, verified, last_used_step, created_at, updated_at
		FROM admin_totp_enrollments WHERE user_id = $1
	`

	var e models.TOTPEnrollment
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&e.UserID, &e.EncryptedSecret, &e.Nonce, &e.Verified, &e.LastUsedStep,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &e, nil
}

func (r *TOTPRepository) MarkVerified(ctx context.Context, userID string) error {
	query := `UPDATE admin_totp_enrollments SET verified = true, updated_at = now() WHERE user_id = $1`

	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ConsumeStep advances the replay guard to the given TOTP step. The
// conditional branch runs server-side, so a code can be consumed at most
// once even across concurrent verification attempts.
func (r *TOTPRepository) ConsumeStep(ctx context.Context, userID string, step int64) (bool, error) {
	query := `
		UPDATE admin_totp_enrollments SET last_used_step = $2, updated_at = now()
		WHERE user_id = $1 AND last_used_step < $2
	`

	result, err := r.db.Exec(ctx, query, userID, step)
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return result.RowsAffected() > 0, nil
}
