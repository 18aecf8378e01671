package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/compia/compia/internal/auth"
	"github.com/compia/compia/internal/services"
	pkghttp "github.com/compia/compia/pkg/http"
)

// RateLimit enforces the shared fixed-window limit for every request. The
// bucket key is the local user for authenticated callers and the client IP
// otherwise, so logging in moves a caller to their own (larger) bucket.
//
// CORS preflights are exempt: browsers send them outside the application's
// control and they carry no credentials to key on.
func RateLimit(limiter *services.RateLimitService, ipConfig *pkghttp.IPConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			identity := auth.GetIdentity(r)
			authenticated := identity.Authenticated()

			key := identity.RateLimitKey()
			if key == "" {
				key = "ip:" + pkghttp.ExtractClientIP(r, ipConfig)
			}

			result := limiter.Check(r.Context(), key, authenticated)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

			if !result.Allowed {
				pkghttp.WriteTooManyRequests(w, "Rate limit exceeded. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BurstGuardConfig holds the per-IP burst limit for sensitive endpoints.
type BurstGuardConfig struct {
	RequestsPerMinute int
}

// DefaultBurstGuard returns the burst limit applied to credential-bearing
// endpoints such as invitation acceptance.
func DefaultBurstGuard() BurstGuardConfig {
	return BurstGuardConfig{
		RequestsPerMinute: 10,
	}
}

// BurstGuardByIP is a narrow in-process limiter layered on top of the shared
// one. It exists to absorb tight request bursts against endpoints where a
// failed attempt is itself interesting, without a database round trip per
// probe.
func BurstGuardByIP(config BurstGuardConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many attempts. Please slow down.")
		}),
	)
}
