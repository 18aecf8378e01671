package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/compia/compia/internal/database"
	"github.com/compia/compia/internal/models"
	"github.com/google/uuid"
)

type InspectionRepository struct {
	db database.Querier
}

func NewInspectionRepository(db *database.DB) *InspectionRepository {
	return &InspectionRepository{db: db.Pool}
}

const inspectionColumns = `id, organization_id, checklist_id, inspector_id, location, scheduled_for, status, responses, completed_at, created_at, updated_at`

func scanInspectionRow(scanner rowScanner) (*models.Inspection, error) {
	var insp models.Inspection
	err := scanner.Scan(
		&insp.ID, &insp.OrganizationID, &insp.ChecklistID, &insp.InspectorID,
		&insp.Location, &insp.ScheduledFor, &insp.Status, &insp.Responses,
		&insp.CompletedAt, &insp.CreatedAt, &insp.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &insp, nil
}

func (r *InspectionRepository) GetByID(ctx context.Context, id string) (*models.Inspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections WHERE id = $1`
	return scanInspectionRow(r.db.QueryRow(ctx, query, id))
}

func (r *InspectionRepository) ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*models.Inspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections WHERE organization_id = $1 ORDER BY scheduled_for DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query inspections: %w", err)
	}
	defer rows.Close()

	inspections := make([]*models.Inspection, 0)
	for rows.Next() {
		insp, err := scanInspectionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		inspections = append(inspections, insp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return inspections, nil
}

func (r *InspectionRepository) ListByInspector(ctx context.Context, inspectorID string, limit, offset int) ([]*models.Inspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections WHERE inspector_id = $1 ORDER BY scheduled_for DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, inspectorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query inspections: %w", err)
	}
	defer rows.Close()

	inspections := make([]*models.Inspection, 0)
	for rows.Next() {
		insp, err := scanInspectionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		inspections = append(inspections, insp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return inspections, nil
}

func (r *InspectionRepository) Create(ctx context.Context, insp *models.Inspection) (*models.Inspection, error) {
	insp.ID = uuid.New().String()
	now := time.Now()
	if insp.Status == "" {
		insp.Status = models.InspectionScheduled
	}

	query := `
		INSERT INTO inspections (id, organization_id, checklist_id, inspector_id, location, scheduled_for, status, responses, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + inspectionColumns

	return scanInspectionRow(r.db.QueryRow(ctx, query,
		insp.ID, insp.OrganizationID, insp.ChecklistID, insp.InspectorID,
		insp.Location, insp.ScheduledFor, insp.Status, insp.Responses, now, now,
	))
}

func (r *InspectionRepository) Update(ctx context.Context, id string, insp *models.Inspection) (*models.Inspection, error) {
	query := `
		UPDATE inspections SET location = $1, scheduled_for = $2, status = $3, responses = $4, completed_at = $5, updated_at = $6
		WHERE id = $7
		RETURNING ` + inspectionColumns

	return scanInspectionRow(r.db.QueryRow(ctx, query,
		insp.Location, insp.ScheduledFor, insp.Status, insp.Responses, insp.CompletedAt, time.Now(), id,
	))
}

func (r *InspectionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM inspections WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
