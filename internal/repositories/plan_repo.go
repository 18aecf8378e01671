package repositories

import (
	"context"
	"fmt"

	"github.com/compia/compia/internal/database"
	"github.com/compia/compia/internal/models"
)

type PlanRepository struct {
	db database.Querier
}

func NewPlanRepository(db *database.DB) *PlanRepository {
	return &PlanRepository{db: db.Pool}
}

// ListPublic returns plans flagged for the public pricing listing.
func (r *PlanRepository) ListPublic(ctx context.Context) ([]*models.Plan, error) {
	query := `
		SELECT id, name, price_cents, currency, max_users, max_monthly_inspections, public, created_at
		FROM plans WHERE public = true ORDER BY price_cents ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	plans := make([]*models.Plan, 0)
	for rows.Next() {
		var plan models.Plan
		err := rows.Scan(
			&plan.ID, &plan.Name, &plan.PriceCents, &plan.Currency,
			&plan.MaxUsers, &plan.MaxMonthlyInspections, &plan.Public, &plan.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, &plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return plans, nil
}
