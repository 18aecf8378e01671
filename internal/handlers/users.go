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

// UserService defines the interface for user business logic
type UserService interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, identity *models.Identity, limit, offset int) ([]*models.User, error)
	UpdateUser(ctx context.Context, id string, user *models.User) (*models.User, error)
	ApproveUser(ctx context.Context, id string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name   string `json:"name" validate:"omitempty,min=1,max=255"`
	Role   string `json:"role" validate:"omitempty,oneof=system_admin org_admin inspector"`
	Status string `json:"status" validate:"omitempty,oneof=pending active suspended"`
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	Status         string  `json:"status"`
	OrganizationID *string `json:"organization_id"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// ListUsersResponse represents a list of users
type ListUsersResponse struct {
	Users []*UserResponse `json:"users"`
	Total int             `json:"total"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		Status:         user.Status,
		OrganizationID: user.OrganizationID,
		CreatedAt:      user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:      user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// RegisterRoutes registers user routes. Paths are relative to the module's
// mount point.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.GetCurrentUser)
	r.Get("/", h.ListUsers)
	r.Get("/{id}", h.GetUser)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleOrgAdmin))
		r.Put("/{id}", h.UpdateUser)
		r.Post("/{id}/approve", h.ApproveUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

// GetCurrentUser returns the caller's own user record
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r)

	user, err := h.service.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userModelToResponse(user))
}

// GetUser retrieves a user by ID. Non-admins can only read themselves.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	identity := auth.GetIdentity(r)

	if userID != identity.UserID && !identity.HasRole(models.RoleOrgAdmin) {
		pkghttp.WriteForbidden(w, "You cannot access this resource")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Org admins only see users inside their own tenant.
	if userID != identity.UserID && !identity.HasRole(models.RoleSystemAdmin) {
		if identity.OrganizationID == nil || user.OrganizationID == nil || *user.OrganizationID != *identity.OrganizationID {
			pkghttp.WriteNotFound(w, "Resource not found")
			return
		}
	}

	writeJSON(w, http.StatusOK, userModelToResponse(user))
}

// ListUsers retrieves users visible to the caller with pagination
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identity := auth.GetIdentity(r)
	users, err := h.service.ListUsers(r.Context(), identity, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := &ListUsersResponse{
		Users: make([]*UserResponse, len(users)),
		Total: len(users),
	}
	for i, user := range users {
		response.Users[i] = userModelToResponse(user)
	}

	writeJSON(w, http.StatusOK, response)
}

// UpdateUser updates a user's name, role and status
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	// Only a system admin can mint another system admin.
	identity := auth.GetIdentity(r)
	if req.Role == models.RoleSystemAdmin && !identity.HasRole(models.RoleSystemAdmin) {
		pkghttp.WriteForbidden(w, "You cannot assign this role")
		return
	}

	update := &models.User{
		Name:   strings.TrimSpace(req.Name),
		Role:   req.Role,
		Status: req.Status,
	}

	user, err := h.service.UpdateUser(r.Context(), userID, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userModelToResponse(user))
}

// ApproveUser activates a pending user account
func (h *UserHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	user, err := h.service.ApproveUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userModelToResponse(user))
}

// DeleteUser removes a user account
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	identity := auth.GetIdentity(r)

	if userID == identity.UserID {
		pkghttp.WriteBadRequest(w, "You cannot delete your own account")
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
