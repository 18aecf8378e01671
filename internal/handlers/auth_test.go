package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/compia/compia/internal/models"
)

type MockTokenVerifier struct {
	VerifyFunc func(token string) (*models.ProviderClaims, error)
}

func (m *MockTokenVerifier) Verify(token string) (*models.ProviderClaims, error) {
	return m.VerifyFunc(token)
}

type MockCallbackResolver struct {
	ResolveUserFunc func(ctx context.Context, externalID, email string) (*models.User, error)
}

func (m *MockCallbackResolver) ResolveUser(ctx context.Context, externalID, email string) (*models.User, error) {
	return m.ResolveUserFunc(ctx, externalID, email)
}

func passthroughGuard(next http.Handler) http.Handler { return next }

func newAuthRouter(verifier TokenVerifier, users CallbackUserResolver) chi.Router {
	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		NewAuthHandler(verifier, users).RegisterRoutes(r, passthroughGuard)
	})
	return router
}

func TestAuthCallback_ProvisionsUser(t *testing.T) {
	verifier := &MockTokenVerifier{
		VerifyFunc: func(token string) (*models.ProviderClaims, error) {
			assert.Equal(t, "provider-token", token)
			claims := &models.ProviderClaims{Email: "new@example.com"}
			claims.Subject = "ext-new"
			return claims, nil
		},
	}
	users := &MockCallbackResolver{
		ResolveUserFunc: func(ctx context.Context, externalID, email string) (*models.User, error) {
			assert.Equal(t, "ext-new", externalID)
			return &models.User{
				ID:     "user-1",
				Email:  email,
				Role:   models.RoleInspector,
				Status: models.StatusPending,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/callback", nil)
	req.Header.Set("Authorization", "Bearer provider-token")
	rec := httptest.NewRecorder()
	newAuthRouter(verifier, users).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"user-1"`)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
}

func TestAuthCallback_MissingBearer(t *testing.T) {
	router := newAuthRouter(&MockTokenVerifier{}, &MockCallbackResolver{})

	req := httptest.NewRequest(http.MethodPost, "/auth/callback", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthCallback_InvalidToken(t *testing.T) {
	verifier := &MockTokenVerifier{
		VerifyFunc: func(token string) (*models.ProviderClaims, error) {
			return nil, errors.New("signature mismatch")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/callback", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	newAuthRouter(verifier, &MockCallbackResolver{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
