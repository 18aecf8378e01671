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

// InvitationService defines the interface for the invite-and-accept flow
type InvitationService interface {
	CreateInvitation(ctx context.Context, orgID, orgName, email, role, invitedBy string) (*models.Invitation, error)
	AcceptInvitation(ctx context.Context, userID, email, token string) (*models.User, error)
	ListInvitations(ctx context.Context, orgID string, limit, offset int) ([]*models.Invitation, error)
	RevokeInvitation(ctx context.Context, orgID, invitationID string) error
}

// InvitationOrgReader resolves the inviting organization's display name for
// the invitation email.
type InvitationOrgReader interface {
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
}

// InvitationHandler handles invitation HTTP requests
type InvitationHandler struct {
	service InvitationService
	orgs    InvitationOrgReader
}

// NewInvitationHandler creates a new InvitationHandler
func NewInvitationHandler(service InvitationService, orgs InvitationOrgReader) *InvitationHandler {
	return &InvitationHandler{
		service: service,
		orgs:    orgs,
	}
}

// CreateInvitationRequest represents the request body for inviting a user
type CreateInvitationRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=org_admin inspector"`
}

// AcceptInvitationRequest carries the token from the invitation email
type AcceptInvitationRequest struct {
	Token string `json:"token" validate:"required,min=1"`
}

// InvitationResponse represents an invitation in the HTTP response
type InvitationResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Accepted  bool   `json:"accepted"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

func invitationModelToResponse(inv *models.Invitation) *InvitationResponse {
	return &InvitationResponse{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      inv.Role,
		Accepted:  inv.Accepted(),
		ExpiresAt: inv.ExpiresAt.Format(time.RFC3339),
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
	}
}

// RegisterRoutes registers invitation routes. Acceptance is open to any
// authenticated caller, including pending ones: accepting is how an invited
// account becomes active. It sits behind the per-IP burst guard since each
// attempt burns a bcrypt comparison. Management requires an org admin.
func (h *InvitationHandler) RegisterRoutes(r chi.Router, burstGuard func(http.Handler) http.Handler) {
	r.With(burstGuard).Post("/accept", h.AcceptInvitation)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireIdentity)
		r.Use(auth.RequireRole(models.RoleOrgAdmin))
		r.Post("/", h.CreateInvitation)
		r.Get("/", h.ListInvitations)
		r.Delete("/{id}", h.RevokeInvitation)
	})
}

// CreateInvitation invites an email address into the caller's organization
func (h *InvitationHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	org, err := h.orgs.GetOrganization(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	identity := auth.GetIdentity(r)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	inv, err := h.service.CreateInvitation(r.Context(), orgID, org.Name, email, req.Role, identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, invitationModelToResponse(inv))
}

// AcceptInvitation redeems an invitation token for the authenticated caller
func (h *InvitationHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req AcceptInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identity := auth.GetIdentity(r)
	if !identity.Authenticated() || identity.UserID == "" {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}
	if identity.Status == models.StatusSuspended {
		pkghttp.WriteForbidden(w, models.ErrAccountSuspended.Error())
		return
	}

	user, err := h.service.AcceptInvitation(r.Context(), identity.UserID, identity.Email, req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userModelToResponse(user))
}

// ListInvitations retrieves the tenant's invitations
func (h *InvitationHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	invitations, err := h.service.ListInvitations(r.Context(), orgID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]*InvitationResponse, len(invitations))
	for i, inv := range invitations {
		responses[i] = invitationModelToResponse(inv)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"invitations": responses,
		"total":       len(responses),
	})
}

// RevokeInvitation cancels a pending invitation
func (h *InvitationHandler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := callerOrg(w, r)
	if !ok {
		return
	}

	if err := h.service.RevokeInvitation(r.Context(), orgID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
