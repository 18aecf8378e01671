package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/compia/compia/internal/models"
)

// PlanService defines the interface for the public pricing listing
type PlanService interface {
	ListPublicPlans(ctx context.Context) ([]*models.Plan, error)
}

// PricingHandler serves the unauthenticated pricing page data
type PricingHandler struct {
	service PlanService
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(service PlanService) *PricingHandler {
	return &PricingHandler{
		service: service,
	}
}

// PlanResponse represents a subscription plan in the HTTP response
type PlanResponse struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	PriceCents            int    `json:"price_cents"`
	Currency              string `json:"currency"`
	MaxUsers              int    `json:"max_users"`
	MaxMonthlyInspections int    `json:"max_monthly_inspections"`
}

// RegisterRoutes registers the pricing routes
func (h *PricingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListPlans)
}

// ListPlans returns the publicly visible subscription plans
func (h *PricingHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPublicPlans(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]*PlanResponse, len(plans))
	for i, plan := range plans {
		responses[i] = &PlanResponse{
			ID:                    plan.ID,
			Name:                  plan.Name,
			PriceCents:            plan.PriceCents,
			Currency:              plan.Currency,
			MaxUsers:              plan.MaxUsers,
			MaxMonthlyInspections: plan.MaxMonthlyInspections,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"plans": responses,
	})
}
