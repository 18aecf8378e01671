package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for RateLimitDecisions.
const (
	RateLimitAllowed  = "allowed"
	RateLimitRejected = "rejected"
	RateLimitFailOpen = "fail_open"
)

// Outcome labels for AuthResolutions.
const (
	AuthBearer       = "bearer"
	AuthSession      = "session"
	AuthAnonymous    = "anonymous"
	AuthBlocked      = "blocked_session"
	AuthInvalidToken = "invalid_token"
)

var (
	// RequestsTotal counts handled HTTP requests by method and status class.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compia",
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by method and status class.",
	}, []string{"method", "status_class"})

	// RateLimitDecisions counts limiter verdicts.
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compia",
		Name:      "rate_limit_decisions_total",
		Help:      "Rate limiter verdicts: allowed, rejected, fail_open.",
	}, []string{"outcome"})

	// AuthResolutions counts identity resolution outcomes.
	AuthResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compia",
		Name:      "auth_resolutions_total",
		Help:      "Identity resolution outcomes per request.",
	}, []string{"outcome"})

	// UsersProvisioned counts local user records auto-created on first sight.
	UsersProvisioned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "compia",
		Name:      "users_provisioned_total",
		Help:      "Local user records auto-created for new external identities.",
	})
)
