package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/compia/compia/internal/database"
	"github.com/compia/compia/internal/models"
	"github.com/google/uuid"
)

type InvitationRepository struct {
	db database.Querier
}

func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db.Pool}
}

const invitationColumns = `id, organization_id, email, role, token_hash, invited_by, accepted_at, expires_at, created_at`

func scanInvitationRow(scanner rowScanner) (*models.Invitation, error) {
	var inv models.Invitation
	err := scanner.Scan(
		&inv.ID, &inv.OrganizationID, &inv.Email, &inv.Role, &inv.TokenHash,
		&inv.InvitedBy, &inv.AcceptedAt, &inv.ExpiresAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &inv, nil
}

func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	inv.ID = uuid.New().String()

	query := `
		INSERT INTO invitations (id, organization_id, email, role, token_hash, invited_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + invitationColumns

	return scanInvitationRow(r.db.QueryRow(ctx, query,
		inv.ID, inv.OrganizationID, inv.Email, inv.Role, inv.TokenHash,
		inv.InvitedBy, inv.ExpiresAt, time.Now(),
	))
}

func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	return scanInvitationRow(r.db.QueryRow(ctx, query, id))
}

// GetPendingByEmail returns the newest unaccepted, unexpired invitation for
// an email address.
func (r *InvitationRepository) GetPendingByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + ` FROM invitations
		WHERE email = $1 AND accepted_at IS NULL AND expires_at > now()
		ORDER BY created_at DESC LIMIT 1
	`
	return scanInvitationRow(r.db.QueryRow(ctx, query, email))
}

func (r *InvitationRepository) ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE organization_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	invitations := make([]*models.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return invitations, nil
}

// MarkAccepted stamps the invitation as redeemed. The accepted_at IS NULL
// guard makes acceptance first-wins under concurrent redemption attempts.
func (r *InvitationRepository) MarkAccepted(ctx context.Context, id string) error {
	query := `UPDATE invitations SET accepted_at = now() WHERE id = $1 AND accepted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrInvitationUsed
	}

	return nil
}

// DeleteExpired removes unaccepted invitations past their expiry.
func (r *InvitationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM invitations WHERE accepted_at IS NULL AND expires_at < now()`

	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// Revoke deletes a pending invitation by id.
func (r *InvitationRepository) Revoke(ctx context.Context, id string) error {
	query := `DELETE FROM invitations WHERE id = $1 AND accepted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
