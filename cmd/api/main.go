package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/compia/compia/internal/auth"
	"github.com/compia/compia/internal/background"
	"github.com/compia/compia/internal/config"
	"github.com/compia/compia/internal/database"
	"github.com/compia/compia/internal/handlers"
	middlewareCustom "github.com/compia/compia/internal/middleware"
	"github.com/compia/compia/internal/models"
	"github.com/compia/compia/internal/repositories"
	"github.com/compia/compia/internal/routes"
	"github.com/compia/compia/internal/services"
	pkghttp "github.com/compia/compia/pkg/http"
	pkglogger "github.com/compia/compia/pkg/logger"
)

// publicPaths lists the routes the identity resolver skips entirely. Rate
// limiting still applies to them, keyed on client IP.
var publicPaths = []string{
	"/",
	"/health",
	"/metrics",
	"/api/pricing",
	"/api/auth/callback",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Environment))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
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

	// Identity resolution
	verifier := auth.NewProviderVerifier(cfg.Auth.ProviderJWTSecret)
	sessions := auth.NewSessionChecker(cfg.Server.Environment)
	identityService := services.NewIdentityService(userRepo, logger)
	resolver := auth.NewResolver(verifier, sessions, identityService, auditLogger, logger, ipConfig, publicPaths)

	totpManager, err := auth.NewTOTPManager([]byte(cfg.Auth.TOTPEncryptionKey), "COMPIA")
	if err != nil {
		logger.Error("failed to initialize TOTP manager", slog.Any("error", err))
		os.Exit(1)
	}

	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.InvitationURLBase,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Services
	rateLimitService := services.NewRateLimitService(rateLimitRepo, services.RateLimitConfig{
		BaseLimit:               cfg.RateLimit.BaseLimit,
		Window:                  cfg.RateLimit.Window,
		AuthenticatedMultiplier: cfg.RateLimit.AuthenticatedMultiplier,
	}, logger)
	userService := services.NewUserService(userRepo, logger)
	orgService := services.NewOrganizationService(orgRepo, logger)
	inspectionService := services.NewInspectionService(inspectionRepo, logger)
	checklistService := services.NewChecklistService(checklistRepo, logger)
	invitationService := services.NewInvitationService(invitationRepo, userRepo, emailService, cfg.Email.InvitationExpiry, logger)
	planService := services.NewPlanService(planRepo, logger)
	adminService := services.NewAdminService(statsRepo, totpRepo, totpManager, logger)

	// Route modules, built lazily on first request per prefix
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

	// Bootstrap the first system admin if configured
	if cfg.Auth.BootstrapAdminEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := ensureSystemAdmin(ctx, userRepo, cfg.Auth.BootstrapAdminEmail, logger); err != nil {
			logger.Error("failed to ensure system admin", slog.Any("error", err))
		}
		cancel()
	}

	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)
	devMode := cfg.Server.Environment == config.EnvDevelopment

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Environment}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middlewareCustom.ErrorBoundary(logger, devMode))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(resolver.Middleware())
	router.Use(middlewareCustom.RateLimit(rateLimitService, ipConfig))

	healthHandler := handlers.NewHealthHandler(db)
	router.Get("/health", healthHandler.Liveness)
	router.Get("/health/ready", healthHandler.Readiness)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(api chi.Router) {
		registry.Mount(api)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Background cleanup of expired rate-limit buckets and invitations
	cleanupManager := background.NewCleanupManager(rateLimitRepo, invitationRepo, logger, cfg.Auth.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureSystemAdmin promotes the configured account to an active
// system_admin. The account must have signed in at least once so a local
// record exists; until then the promotion is skipped and retried on the
// next startup.
func ensureSystemAdmin(ctx context.Context, users *repositories.UserRepository, email string, logger *slog.Logger) error {
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Info("bootstrap admin has not signed in yet, skipping promotion")
			return nil
		}
		return err
	}

	if user.Role == models.RoleSystemAdmin && user.Status == models.StatusActive {
		return nil
	}

	user.Role = models.RoleSystemAdmin
	user.Status = models.StatusActive
	if _, err := users.Update(ctx, user.ID, user); err != nil {
		return err
	}

	logger.Info("bootstrapped system admin", slog.String("user_id", user.ID))
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
