package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/compia/compia/internal/database"
	"github.com/compia/compia/internal/models"
	"github.com/google/uuid"
)

type ChecklistRepository struct {
	db database.Querier
}

func NewChecklistRepository(db *database.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db.Pool}
}

const checklistColumns = `id, organization_id, title, description, sections, created_by, created_at, updated_at`

func scanChecklistRow(scanner rowScanner) (*models.Checklist, error) {
	var cl models.Checklist
	err := scanner.Scan(
		&cl.ID, &cl.OrganizationID, &cl.Title, &cl.Description,
		&cl.Sections, &cl.CreatedBy, &cl.CreatedAt, &cl.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &cl, nil
}

func (r *ChecklistRepository) GetByID(ctx context.Context, id string) (*models.Checklist, error) {
	query := `SELECT ` + checklistColumns + ` FROM checklists WHERE id = $1`
	return scanChecklistRow(r.db.QueryRow(ctx, query, id))
}

func (r *ChecklistRepository) ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*models.Checklist, error) {
	query := `SELECT ` + checklistColumns + ` FROM checklists WHERE organization_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query checklists: %w", err)
	}
	defer rows.Close()

	checklists := make([]*models.Checklist, 0)
	for rows.Next() {
		cl, err := scanChecklistRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checklist: %w", err)
		}
		checklists = append(checklists, cl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return checklists, nil
}

func (r *ChecklistRepository) Create(ctx context.Context, cl *models.Checklist) (*models.Checklist, error) {
	cl.ID = uuid.New().String()
	now := time.Now()

	query := `
		INSERT INTO checklists (id, organization_id, title, description, sections, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + checklistColumns

	return scanChecklistRow(r.db.QueryRow(ctx, query,
		cl.ID, cl.OrganizationID, cl.Title, cl.Description, cl.Sections, cl.CreatedBy, now, now,
	))
}

func (r *ChecklistRepository) Update(ctx context.Context, id string, cl *models.Checklist) (*models.Checklist, error) {
	query := `
		UPDATE checklists SET title = $1, description = $2, sections = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + checklistColumns

	return scanChecklistRow(r.db.QueryRow(ctx, query, cl.Title, cl.Description, cl.Sections, time.Now(), id))
}

func (r *ChecklistRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM checklists WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
