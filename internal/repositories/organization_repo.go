package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/compia/compia/internal/database"
	"github.com/compia/compia/internal/models"
	"github.com/google/uuid"
)

type OrganizationRepository struct {
	db database.Querier
}

func NewOrganizationRepository(db *database.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db.Pool}
}

const orgColumns = `id, name, slug, plan_id, created_at, updated_at`

func scanOrgRow(scanner rowScanner) (*models.Organization, error) {
	var org models.Organization
	err := scanner.Scan(&org.ID, &org.Name, &org.Slug, &org.PlanID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &org, nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrgRow(r.db.QueryRow(ctx, query, id))
}

func (r *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]*models.Organization, 0)
	for rows.Next() {
		org, err := scanOrgRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return orgs, nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	org.ID = uuid.New().String()
	now := time.Now()

	query := `
		INSERT INTO organizations (id, name, slug, plan_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + orgColumns

	return scanOrgRow(r.db.QueryRow(ctx, query, org.ID, org.Name, org.Slug, org.PlanID, now, now))
}

func (r *OrganizationRepository) Update(ctx context.Context, id string, org *models.Organization) (*models.Organization, error) {
	query := `
		UPDATE organizations SET name = $1, slug = $2, plan_id = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + orgColumns

	return scanOrgRow(r.db.QueryRow(ctx, query, org.Name, org.Slug, org.PlanID, time.Now(), id))
}

func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM organizations WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
