package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/compia/compia/internal/metrics"
	"github.com/compia/compia/internal/models"
	pkghttp "github.com/compia/compia/pkg/http"
	pkglogger "github.com/compia/compia/pkg/logger"
)

// UserResolver resolves an external identity to its local user record,
// auto-provisioning one on first sight.
type UserResolver interface {
	ResolveUser(ctx context.Context, externalID, email string) (*models.User, error)
}

// Resolver is the per-request identity resolution middleware. It establishes
// who the caller is and attaches the identity to the request context; it
// never rejects a request itself. Handlers that require identity enforce it
// through RequireIdentity / RequireRole.
type Resolver struct {
	verifier    *ProviderVerifier
	sessions    *SessionChecker
	users       UserResolver
	audit       *pkglogger.AuditLogger
	logger      *slog.Logger
	ipConfig    *pkghttp.IPConfig
	publicPaths []string
}

func NewResolver(
	verifier *ProviderVerifier,
	sessions *SessionChecker,
	users UserResolver,
	audit *pkglogger.AuditLogger,
	logger *slog.Logger,
	ipConfig *pkghttp.IPConfig,
	publicPaths []string,
) *Resolver {
	return &Resolver{
		verifier:    verifier,
		sessions:    sessions,
		users:       users,
		audit:       audit,
		logger:      logger,
		ipConfig:    ipConfig,
		publicPaths: publicPaths,
	}
}

// IsPublicPath reports whether path matches the public allow-list. "/" only
// matches exactly; every other entry is a prefix.
func (rs *Resolver) IsPublicPath(path string) bool {
	for _, public := range rs.publicPaths {
		if public == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == public || strings.HasPrefix(path, public+"/") {
			return true
		}
	}
	return false
}

// Middleware resolves the caller's identity on every non-public request.
//
// Resolution order, first match wins:
//  1. Bearer token verified against the identity provider
//  2. Development session cookie (development environment only)
//  3. Anonymous
func (rs *Resolver) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rs.IsPublicPath(r.URL.Path) {
				// Auth is skipped for public paths; rate limiting still
				// applies downstream, keyed on IP.
				next.ServeHTTP(w, r)
				return
			}

			identity := rs.resolve(r)
			if identity != nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			} else {
				metrics.AuthResolutions.WithLabelValues(metrics.AuthAnonymous).Inc()
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rs *Resolver) resolve(r *http.Request) *models.Identity {
	if identity := rs.resolveBearer(r); identity != nil {
		return identity
	}
	return rs.resolveSession(r)
}

func (rs *Resolver) resolveBearer(r *http.Request) *models.Identity {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil
	}

	claims, err := rs.verifier.Verify(parts[1])
	if err != nil {
		// Provider failures are absence of identity, never request-fatal.
		rs.logger.Info("bearer token rejected", slog.Any("error", err))
		metrics.AuthResolutions.WithLabelValues(metrics.AuthInvalidToken).Inc()
		return nil
	}

	identity := &models.Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Source:  models.IdentitySourceBearer,
	}

	rs.mergeLocalUser(r.Context(), identity)
	metrics.AuthResolutions.WithLabelValues(metrics.AuthBearer).Inc()
	return identity
}

func (rs *Resolver) resolveSession(r *http.Request) *models.Identity {
	subject, ok, blocked := rs.sessions.Check(r)
	if blocked {
		rs.audit.LogBlockedSession(pkghttp.ExtractClientIP(r, rs.ipConfig), r.UserAgent())
		metrics.AuthResolutions.WithLabelValues(metrics.AuthBlocked).Inc()
		return nil
	}
	if !ok {
		return nil
	}

	identity := &models.Identity{
		Subject: subject,
		Source:  models.IdentitySourceSession,
	}

	rs.mergeLocalUser(r.Context(), identity)
	metrics.AuthResolutions.WithLabelValues(metrics.AuthSession).Inc()
	return identity
}

// mergeLocalUser overlays the local user record onto the identity. The local
// record is the source of truth for role, status, and tenant binding. A
// provisioning failure is logged and the request proceeds with the
// provider-derived identity only.
func (rs *Resolver) mergeLocalUser(ctx context.Context, identity *models.Identity) {
	user, err := rs.users.ResolveUser(ctx, identity.Subject, identity.Email)
	if err != nil {
		rs.logger.Error("failed to resolve local user",
			slog.String("subject", identity.Subject),
			slog.Any("error", err))
		return
	}

	identity.UserID = user.ID
	identity.Role = user.Role
	identity.Status = user.Status
	identity.OrganizationID = user.OrganizationID
	if identity.Email == "" {
		identity.Email = user.Email
	}
}

// RequireIdentity rejects requests with no resolved, approved identity.
// Pending users get a 403 until approved.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r)
		if !identity.Authenticated() {
			pkghttp.WriteUnauthorized(w, "authentication required")
			return
		}

		switch identity.Status {
		case models.StatusActive:
		case models.StatusPending:
			pkghttp.WriteForbidden(w, models.ErrAccountPending.Error())
			return
		case models.StatusSuspended:
			pkghttp.WriteForbidden(w, models.ErrAccountSuspended.Error())
			return
		default:
			// No local record was available for this request.
			pkghttp.WriteForbidden(w, "account not provisioned")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole creates a middleware that enforces role-based access control.
// Must run after RequireIdentity.
func RequireRole(roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if !identity.Authenticated() {
				pkghttp.WriteUnauthorized(w, "authentication required")
				return
			}

			if !identity.HasRole(roles...) {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
