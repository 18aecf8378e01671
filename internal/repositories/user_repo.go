package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/compia/compia/internal/database"
	"github.com/compia/compia/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	db database.Querier
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db.Pool}
}

const userColumns = `id, external_id, email, name, role, status, organization_id, created_at, updated_at`

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	err := scanner.Scan(
		&user.ID, &user.ExternalID, &user.Email, &user.Name,
		&user.Role, &user.Status, &user.OrganizationID,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	return scanUserRow(r.db.QueryRow(ctx, query, externalID))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// CreateIfAbsent provisions a user for a newly seen external identity.
// Two concurrent first-requests for the same identity may both call this;
// the ON CONFLICT DO NOTHING plus re-read makes the operation idempotent
// and guarantees exactly one row per external id.
func (r *UserRepository) CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()

	if user.Role == "" {
		user.Role = models.RoleInspector
	}
	if user.Status == "" {
		user.Status = models.StatusPending
	}

	query := `
		INSERT INTO users (id, external_id, email, name, role, status, organization_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.ExternalID, user.Email, user.Name,
		user.Role, user.Status, user.OrganizationID, now, now,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	// Re-read: the insert may have been a no-op because a concurrent
	// request won the race, in which case its row is the canonical one.
	return r.GetByExternalID(ctx, user.ExternalID)
}

func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	query := `
		UPDATE users SET name = $1, role = $2, status = $3, organization_id = $4, updated_at = $5
		WHERE id = $6
		RETURNING ` + userColumns

	return scanUserRow(r.db.QueryRow(ctx, query,
		user.Name, user.Role, user.Status, user.OrganizationID, time.Now(), id,
	))
}

// BindToOrganization attaches a user to a tenant with a role, used when an
// invitation is accepted. An approved invitation also activates the account.
func (r *UserRepository) BindToOrganization(ctx context.Context, userID, orgID, role string) (*models.User, error) {
	query := `
		UPDATE users SET organization_id = $1, role = $2, status = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + userColumns

	return scanUserRow(r.db.QueryRow(ctx, query, orgID, role, models.StatusActive, time.Now(), userID))
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
