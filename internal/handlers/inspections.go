package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/compia/compia/internal/auth"
	"github.com/compia/compia/internal/models"
	pkghttp "github.com/compia/compia/pkg/http"
)

// InspectionService defines the interface for inspection business logic
type InspectionService interface {
	ScheduleInspection(ctx context.Context, orgID, checklistID, inspectorID, location string, scheduledFor time.Time) (*models.Inspection, error)
	GetInspection(ctx context.Context, orgID, id string) (*models.Inspection, error)
	ListInspections(ctx context.Context, orgID string, limit, offset int) ([]*models.Inspection, error)
	ListAssignedInspections(ctx context.Context, inspectorID string, limit, offset int) ([]*models.Inspection, error)
	TransitionInspection(ctx context.Context, orgID, id, status string, responses json.RawMessage) (*models.Inspection, error)
	SaveResponses(ctx context.Context, orgID, id string, responses json.RawMessage) (*models.Inspection, error)
	DeleteInspection(ctx context.Context, orgID, id string) error
}

// InspectionHandler handles inspection lifecycle HTTP requests
type InspectionHandler struct {
	service InspectionService
}

// NewInspectionHandler creates a new InspectionHandler
func NewInspectionHandler(service InspectionService) *InspectionHandler {
	return &InspectionHandler{
		service: service,
	}
}

// ScheduleInspectionRequest represents the request body for scheduling
type ScheduleInspectionRequest struct {
	ChecklistID  string    `json:"checklist_id" validate:"required,uuid"`
	InspectorID  string    `json:"inspector_id" validate:"required,uuid"`
	Location     string    `json:"location" validate:"required,min=1,max=500"`
	ScheduledFor time.Time `json:"scheduled_for" validate:"required"`
}

// TransitionRequest represents a lifecycle transition request
type TransitionRequest struct {
	Status    string          `json:"status" validate:"required,oneof=in_progress completed"`
	Responses json.RawMessage `json:"responses" validate:"omitempty"`
}

// ResponsesRequest carries partial checklist responses
type ResponsesRequest struct {
	Responses json.RawMessage `json:"responses" validate:"required"`
}

// InspectionResponse represents an inspection in the HTTP response
type InspectionResponse struct {
	ID           string          `json:"id"`
	ChecklistID  string          `json:"checklist_id"`
	InspectorID  string          `json:"inspector_id"`
	Location     string          `json:"location"`
	ScheduledFor string          `json:"scheduled_for"`
	Status       string          `json:"status"`
	Responses    json.RawMessage `json:"responses,omitempty"`
	CompletedAt  *string         `json:"completed_at,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

func inspectionModelToResponse(insp *models.Inspection) *InspectionResponse {
	resp := &InspectionResponse{
		ID:           insp.ID,
		ChecklistID:  insp.ChecklistID,
		InspectorID:  insp.InspectorID,
		Location:     insp.Location,
		ScheduledFor: insp.ScheduledFor.Format(time.RFC3339),
		Status:       insp.Status,
		Responses:    insp.Responses,
		CreatedAt:    insp.CreatedAt.Format(time.RFC3339),
	}
	if insp.CompletedAt != nil {
		completed := insp.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}

// RegisterRoutes registers inspection routes
func (h *InspectionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListInspections)
	r.Get("/assigned", h.ListAssignedInspections)
	r.Get("/{id}", h.GetInspection)
	r.Post("/{id}/transition", h.TransitionInspection)
	r.Put("/{id}/responses", h.SaveResponses)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleOrgAdmin))
		r.Post("/", h.ScheduleInspection)
		r.Delete("/{id}", h.DeleteInspection)
	})
}

// callerOrg returns the caller's tenant, or writes a 403 when the caller has
// no organization binding yet.
func callerOrg(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity := auth.GetIdentity(r)
	if identity.OrganizationID == nil {
		pkghttp.WriteForbidden(w, "Your account is not bound to an organization")
		return "", false
	}
	return *identity.OrganizationID, true
}

// ScheduleInspection creates a new inspection
func (h *InspectionHandler) ScheduleInspection(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	var req ScheduleInspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	insp, err := h.service.ScheduleInspection(r.Context(), orgID, req.ChecklistID, req.InspectorID, req.Location, req.ScheduledFor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, inspectionModelToResponse(insp))
}

// GetInspection retrieves one inspection
func (h *InspectionHandler) GetInspection(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	insp, err := h.service.GetInspection(r.Context(), orgID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inspectionModelToResponse(insp))
}

// ListInspections retrieves the tenant's inspections
func (h *InspectionHandler) ListInspections(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	inspections, err := h.service.ListInspections(r.Context(), orgID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inspectionListResponse(inspections))
}

// ListAssignedInspections retrieves the caller's own assignments
func (h *InspectionHandler) ListAssignedInspections(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identity := auth.GetIdentity(r)
	inspections, err := h.service.ListAssignedInspections(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inspectionListResponse(inspections))
}

func inspectionListResponse(inspections []*models.Inspection) map[string]any {
	responses := make([]*InspectionResponse, len(inspections))
	for i, insp := range inspections {
		responses[i] = inspectionModelToResponse(insp)
	}
	return map[string]any{
		"inspections": responses,
		"total":       len(responses),
	}
}

// TransitionInspection moves an inspection along its lifecycle
func (h *InspectionHandler) TransitionInspection(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	insp, err := h.service.TransitionInspection(r.Context(), orgID, chi.URLParam(r, "id"), req.Status, req.Responses)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inspectionModelToResponse(insp))
}

// SaveResponses stores partial checklist responses
func (h *InspectionHandler) SaveResponses(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	var req ResponsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if len(req.Responses) == 0 || !json.Valid(req.Responses) {
		pkghttp.WriteBadRequest(w, "responses must be a JSON object")
		return
	}

	insp, err := h.service.SaveResponses(r.Context(), orgID, chi.URLParam(r, "id"), req.Responses)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inspectionModelToResponse(insp))
}

// DeleteInspection removes an inspection
func (h *InspectionHandler) DeleteInspection(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteInspection(r.Context(), orgID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
