package auth

import (
	"net/http"
	"strings"

	"github.com/compia/compia/internal/config"
)

// SessionCookieName is the cookie carrying a development session token.
const SessionCookieName = "compia_session"

// DevTokenPrefix marks a development-mode session token. Tokens with this
// prefix are only honored when the environment is explicitly development.
const DevTokenPrefix = "dev-token-"

// SessionChecker accepts development session cookies, and nothing else.
// Production has no server-issued sessions: every production credential is a
// provider bearer token.
type SessionChecker struct {
	environment string
}

func NewSessionChecker(environment string) *SessionChecker {
	return &SessionChecker{environment: environment}
}

// Check inspects the request's session cookie. Return values:
// subject, ok, blocked. blocked is true when a dev token was presented
// outside the development environment, which callers must log as a
// security event.
func (c *SessionChecker) Check(r *http.Request) (subject string, ok bool, blocked bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false, false
	}

	if !strings.HasPrefix(cookie.Value, DevTokenPrefix) {
		// Unknown session format; there are no other valid session tokens.
		return "", false, false
	}

	if c.environment != config.EnvDevelopment {
		return "", false, true
	}

	subject = strings.TrimPrefix(cookie.Value, DevTokenPrefix)
	if subject == "" {
		return "", false, false
	}

	return subject, true, false
}
