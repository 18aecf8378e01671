package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/compia/compia/internal/models"
	pkghttp "github.com/compia/compia/pkg/http"
)

// TokenVerifier validates a provider-issued access token.
type TokenVerifier interface {
	Verify(token string) (*models.ProviderClaims, error)
}

// CallbackUserResolver provisions or fetches the local user for a verified
// external identity.
type CallbackUserResolver interface {
	ResolveUser(ctx context.Context, externalID, email string) (*models.User, error)
}

// AuthHandler serves the post-login provider callback. The path is on the
// public allow-list because a first-time caller has no local standing yet;
// the handler verifies the provider token itself.
type AuthHandler struct {
	verifier TokenVerifier
	users    CallbackUserResolver
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(verifier TokenVerifier, users CallbackUserResolver) *AuthHandler {
	return &AuthHandler{verifier: verifier, users: users}
}

// RegisterRoutes registers the auth callback. burstGuard is the per-IP
// in-memory limiter layered under the global limiter.
func (h *AuthHandler) RegisterRoutes(r chi.Router, burstGuard func(http.Handler) http.Handler) {
	r.With(burstGuard).Post("/callback", h.Callback)
}

// CallbackResponse is the provisioning result returned after login.
type CallbackResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Callback verifies the provider access token and ensures a local user record
// exists for it. Frontends call this once after the provider redirects back,
// so the account shows up for admin approval before the user's first real
// API request.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		pkghttp.WriteUnauthorized(w, "bearer token required")
		return
	}

	claims, err := h.verifier.Verify(parts[1])
	if err != nil {
		pkghttp.WriteUnauthorized(w, "invalid token")
		return
	}

	user, err := h.users.ResolveUser(r.Context(), claims.Subject, claims.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CallbackResponse{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Status: user.Status,
	})
}
