package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/compia/compia/internal/auth"
	"github.com/compia/compia/internal/models"
	pkghttp "github.com/compia/compia/pkg/http"
)

// OrganizationService defines the interface for organization business logic
type OrganizationService interface {
	CreateOrganization(ctx context.Context, name, planID string) (*models.Organization, error)
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	ListOrganizations(ctx context.Context, limit, offset int) ([]*models.Organization, error)
	UpdateOrganization(ctx context.Context, id string, update *models.Organization) (*models.Organization, error)
	DeleteOrganization(ctx context.Context, id string) error
}

// OrganizationHandler handles tenant organization HTTP requests
type OrganizationHandler struct {
	service OrganizationService
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(service OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{
		service: service,
	}
}

// CreateOrganizationRequest represents the request body for creating a tenant
type CreateOrganizationRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=255"`
	PlanID string `json:"plan_id" validate:"required"`
}

// UpdateOrganizationRequest represents the request body for updating a tenant
type UpdateOrganizationRequest struct {
	Name   string `json:"name" validate:"omitempty,min=1,max=255"`
	PlanID string `json:"plan_id" validate:"omitempty"`
}

// OrganizationResponse represents an organization in the HTTP response
type OrganizationResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	PlanID    *string `json:"plan_id"`
	CreatedAt string  `json:"created_at"`
}

func orgModelToResponse(org *models.Organization) *OrganizationResponse {
	return &OrganizationResponse{
		ID:        org.ID,
		Name:      org.Name,
		Slug:      org.Slug,
		PlanID:    org.PlanID,
		CreatedAt: org.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// RegisterRoutes registers organization routes. Creation, listing and
// deletion are platform-level operations; reading and updating a single
// tenant is open to its own org admins.
func (h *OrganizationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.GetOrganization)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleOrgAdmin))
		r.Put("/{id}", h.UpdateOrganization)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleSystemAdmin))
		r.Get("/", h.ListOrganizations)
		r.Post("/", h.CreateOrganization)
		r.Delete("/{id}", h.DeleteOrganization)
	})
}

func (h *OrganizationHandler) canAccessOrganization(r *http.Request, orgID string) bool {
	identity := auth.GetIdentity(r)
	if identity.HasRole(models.RoleSystemAdmin) {
		return true
	}
	return identity.OrganizationID != nil && *identity.OrganizationID == orgID
}

// CreateOrganization registers a new tenant
func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	org, err := h.service.CreateOrganization(r.Context(), strings.TrimSpace(req.Name), req.PlanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, orgModelToResponse(org))
}

// GetOrganization retrieves a tenant by ID
func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")

	if !h.canAccessOrganization(r, orgID) {
		pkghttp.WriteNotFound(w, "Resource not found")
		return
	}

	org, err := h.service.GetOrganization(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orgModelToResponse(org))
}

// ListOrganizations retrieves all tenants with pagination
func (h *OrganizationHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	orgs, err := h.service.ListOrganizations(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]*OrganizationResponse, len(orgs))
	for i, org := range orgs {
		responses[i] = orgModelToResponse(org)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"organizations": responses,
		"total":         len(responses),
	})
}

// UpdateOrganization updates a tenant's name and plan
func (h *OrganizationHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")

	if !h.canAccessOrganization(r, orgID) {
		pkghttp.WriteNotFound(w, "Resource not found")
		return
	}

	var req UpdateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	update := &models.Organization{Name: strings.TrimSpace(req.Name)}
	if req.PlanID != "" {
		update.PlanID = &req.PlanID
	}

	org, err := h.service.UpdateOrganization(r.Context(), orgID, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orgModelToResponse(org))
}

// DeleteOrganization removes a tenant
func (h *OrganizationHandler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")

	if err := h.service.DeleteOrganization(r.Context(), orgID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
