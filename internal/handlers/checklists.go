package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/compia/compia/internal/auth"
	"github.com/compia/compia/internal/models"
	pkghttp "github.com/compia/compia/pkg/http"
)

// ChecklistService defines the interface for checklist business logic
type ChecklistService interface {
	CreateChecklist(ctx context.Context, orgID, createdBy, title, description string, sections json.RawMessage) (*models.Checklist, error)
	GetChecklist(ctx context.Context, orgID, id string) (*models.Checklist, error)
	ListChecklists(ctx context.Context, orgID string, limit, offset int) ([]*models.Checklist, error)
	UpdateChecklist(ctx context.Context, orgID, id string, update *models.Checklist) (*models.Checklist, error)
	DeleteChecklist(ctx context.Context, orgID, id string) error
}

// ChecklistHandler handles checklist template HTTP requests
type ChecklistHandler struct {
	service ChecklistService
}

// NewChecklistHandler creates a new ChecklistHandler
func NewChecklistHandler(service ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{
		service: service,
	}
}

// ChecklistRequest represents the request body for creating or updating a
// checklist template
type ChecklistRequest struct {
	Title       string          `json:"title" validate:"required,min=1,max=255"`
	Description string          `json:"description" validate:"omitempty,max=2000"`
	Sections    json.RawMessage `json:"sections" validate:"required"`
}

// ChecklistResponse represents a checklist in the HTTP response
type ChecklistResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Sections    json.RawMessage `json:"sections"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   string          `json:"created_at"`
}

func checklistModelToResponse(cl *models.Checklist) *ChecklistResponse {
	return &ChecklistResponse{
		ID:          cl.ID,
		Title:       cl.Title,
		Description: cl.Description,
		Sections:    cl.Sections,
		CreatedBy:   cl.CreatedBy,
		CreatedAt:   cl.CreatedAt.Format(time.RFC3339),
	}
}

// RegisterRoutes registers checklist routes
func (h *ChecklistHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListChecklists)
	r.Get("/{id}", h.GetChecklist)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleOrgAdmin))
		r.Post("/", h.CreateChecklist)
		r.Put("/{id}", h.UpdateChecklist)
		r.Delete("/{id}", h.DeleteChecklist)
	})
}

// CreateChecklist stores a new checklist template
func (h *ChecklistHandler) CreateChecklist(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	var req ChecklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identity := auth.GetIdentity(r)
	cl, err := h.service.CreateChecklist(r.Context(), orgID, identity.UserID, strings.TrimSpace(req.Title), req.Description, req.Sections)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checklistModelToResponse(cl))
}

// GetChecklist retrieves one checklist template
func (h *ChecklistHandler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	cl, err := h.service.GetChecklist(r.Context(), orgID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checklistModelToResponse(cl))
}

// ListChecklists retrieves the tenant's checklist templates
func (h *ChecklistHandler) ListChecklists(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	checklists, err := h.service.ListChecklists(r.Context(), orgID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]*ChecklistResponse, len(checklists))
	for i, cl := range checklists {
		responses[i] = checklistModelToResponse(cl)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"checklists": responses,
		"total":      len(responses),
	})
}

// UpdateChecklist updates a checklist template
func (h *ChecklistHandler) UpdateChecklist(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	var req ChecklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	cl, err := h.service.UpdateChecklist(r.Context(), orgID, chi.URLParam(r, "id"), &models.Checklist{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Sections:    req.Sections,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checklistModelToResponse(cl))
}

// DeleteChecklist removes a checklist template
func (h *ChecklistHandler) DeleteChecklist(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteChecklist(r.Context(), orgID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
