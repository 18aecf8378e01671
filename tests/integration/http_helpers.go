package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/compia/compia/internal/auth"
	"github.com/compia/compia/internal/config"
	"github.com/compia/compia/internal/database"
	"github.com/compia/compia/internal/handlers"
	middlewareCustom "github.com/compia/compia/internal/middleware"
	"github.com/compia/compia/internal/repositories"
	"github.com/compia/compia/internal/routes"
	"github.com/compia/compia/internal/services"
	pkghttp "github.com/compia/compia/pkg/http"
	pkglogger "github.com/compia/compia/pkg/logger"
)

// TestProviderSecret signs the provider tokens the test suite mints.
const TestProviderSecret = "test-secret-32-characters-long-for-testing"

// SentEmail represents a captured invitation email
type SentEmail struct {
	To      string
	OrgName string
	Token   string
}

// MockEmailService captures sent invitations for test assertions
type MockEmailService struct {
	SentEmails []SentEmail
	mu         sync.Mutex
}

func (m *MockEmailService) SendInvitationEmail(ctx context.Context, email, orgName, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{To: email, OrgName: orgName, Token: token})
	return nil
}

// GetLastEmail returns the most recent invitation sent
func (m *MockEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server *httptest.Server
	DB     *database.DB
	Email  *MockEmailService
	Config *config.Config

	logger *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database and a
// mocked email service. The wiring mirrors cmd/api.
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "0",
			Environment:    config.EnvProduction,
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
		},
		Auth: config.AuthConfig{
			ProviderJWTSecret: TestProviderSecret,
			TOTPEncryptionKey: "integration-totp-key-32-bytes!!!",
			CleanupInterval:   1 * time.Hour,
		},
		RateLimit: config.RateLimitConfig{
			BaseLimit:               25,
			Window:                  1 * time.Minute,
			AuthenticatedMultiplier: 5,
		},
		Email: config.EmailConfig{
			FromAddress:       "noreply@test.local",
			InvitationURLBase: "http://localhost:3000",
			InvitationExpiry:  72 * time.Hour,
		},
	}

	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	inspectionRepo := repositories.NewInspectionRepository(db)
	checklistRepo := repositories.NewChecklistRepository(db)
	invitationRepo := repositories.NewInvitationRepository(db)
	planRepo := repositories.NewPlanRepository(db)
	rateLimitRepo := repositories.NewRateLimitRepository(db)
	statsRepo := repositories.NewStatsRepository(db)
	totpRepo := repositories.NewTOTPRepository(db)

	auditLogger := pkglogger.NewAuditLogger(logger)
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	verifier := auth.NewProviderVerifier(cfg.Auth.ProviderJWTSecret)
	sessions := auth.NewSessionChecker(cfg.Server.Environment)
	identityService := services.NewIdentityService(userRepo, logger)
	publicPaths := []string{"/", "/health", "/api/pricing", "/api/auth/callback"}
	resolver := auth.NewResolver(verifier, sessions, identityService, auditLogger, logger, ipConfig, publicPaths)

	totpManager, err := auth.NewTOTPManager([]byte(cfg.Auth.TOTPEncryptionKey), "COMPIATest")
	if err != nil {
		panic(err)
	}

	mockEmail := &MockEmailService{}

	rateLimitService := services.NewRateLimitService(rateLimitRepo, services.RateLimitConfig{
		BaseLimit:               cfg.RateLimit.BaseLimit,
		Window:                  cfg.RateLimit.Window,
		AuthenticatedMultiplier: cfg.RateLimit.AuthenticatedMultiplier,
	}, logger)
	userService := services.NewUserService(userRepo, logger)
	orgService := services.NewOrganizationService(orgRepo, logger)
	inspectionService := services.NewInspectionService(inspectionRepo, logger)
	checklistService := services.NewChecklistService(checklistRepo, logger)
	invitationService := services.NewInvitationService(invitationRepo, userRepo, mockEmail, cfg.Email.InvitationExpiry, logger)
	planService := services.NewPlanService(planRepo, logger)
	adminService := services.NewAdminService(statsRepo, totpRepo, totpManager, logger)

	registry := routes.NewRegistry(logger)
	routes.RegisterModules(registry, &routes.Handlers{
		Auth:          handlers.NewAuthHandler(verifier, identityService),
		Users:         handlers.NewUserHandler(userService),
		Organizations: handlers.NewOrganizationHandler(orgService),
		Inspections:   handlers.NewInspectionHandler(inspectionService),
		Checklists:    handlers.NewChecklistHandler(checklistService),
		Invitations:   handlers.NewInvitationHandler(invitationService, orgService),
		Pricing:       handlers.NewPricingHandler(planService),
		Admin:         handlers.NewAdminHandler(adminService, auditLogger),
	})

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Environment}))
	r.Use(middlewareCustom.ErrorBoundary(logger, false))
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(resolver.Middleware())
	r.Use(middlewareCustom.RateLimit(rateLimitService, ipConfig))

	healthHandler := handlers.NewHealthHandler(db)
	r.Get("/health", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Route("/api", func(api chi.Router) {
		registry.Mount(api)
	})

	return &TestServer{
		Server: httptest.NewServer(r),
		DB:     db,
		Email:  mockEmail,
		Config: cfg,
		logger: logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// BearerToken mints a provider access token for subject
func BearerToken(subject, email string) string {
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"exp":   time.Now().Add(1 * time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(TestProviderSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an HTTP request carrying a provider bearer token
func (ts *TestServer) RequestWithAuth(method, path, token string, body interface{}) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// ParseJSONResponse parses a JSON response body into target
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
