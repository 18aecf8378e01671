package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	ts := NewTestServer(db.DB)
	defer ts.Close()

	t.Run("AutoProvisionOnFirstRequest", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))

		token := BearerToken("ext-first", "first@example.com")
		resp, err := ts.RequestWithAuth(http.MethodGet, "/api/users/me", token, nil)
		require.NoError(t, err)
		resp.Body.Close()

		// Provisioned but pending approval
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var role, status string
		err = db.Pool.QueryRow(ctx, `SELECT role, status FROM users WHERE external_id = $1`, "ext-first").Scan(&role, &status)
		require.NoError(t, err)
		assert.Equal(t, "inspector", role)
		assert.Equal(t, "pending", status)
	})

	t.Run("ProviderCallbackProvisions", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))

		token := BearerToken("ext-cb", "callback@example.com")
		resp, err := ts.RequestWithAuth(http.MethodPost, "/api/auth/callback", token, nil)
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, ParseJSONResponse(resp, &body))
		assert.Equal(t, "callback@example.com", body["email"])
		assert.Equal(t, "pending", body["status"])
	})

	t.Run("ActiveUserSeesOwnProfile", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))

		org, err := SeedOrganization(ctx, db.Pool, "Acme Inspections", "acme-inspections")
		require.NoError(t, err)
		_, err = SeedUser(ctx, db.Pool, "ext-active", "active@acme.test", "inspector", "active", org.ID)
		require.NoError(t, err)

		token := BearerToken("ext-active", "active@acme.test")
		resp, err := ts.RequestWithAuth(http.MethodGet, "/api/users/me", token, nil)
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, ParseJSONResponse(resp, &body))
		assert.Equal(t, "active@acme.test", body["email"])
	})

	t.Run("InvitationFlow", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))

		org, err := SeedOrganization(ctx, db.Pool, "Acme Inspections", "acme-inspections")
		require.NoError(t, err)
		_, err = SeedUser(ctx, db.Pool, "ext-admin", "admin@acme.test", "org_admin", "active", org.ID)
		require.NoError(t, err)

		adminToken := BearerToken("ext-admin", "admin@acme.test")
		resp, err := ts.RequestWithAuth(http.MethodPost, "/api/invitations/", adminToken, map[string]string{
			"email": "invitee@acme.test",
			"role":  "inspector",
		})
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		sent := ts.Email.GetLastEmail()
		require.NotNil(t, sent)
		assert.Equal(t, "invitee@acme.test", sent.To)
		require.NotEmpty(t, sent.Token)

		// The invited user signs up with the provider, gets provisioned
		// pending, and redeems the token.
		inviteeToken := BearerToken("ext-invitee", "invitee@acme.test")
		resp, err = ts.RequestWithAuth(http.MethodPost, "/api/auth/callback", inviteeToken, nil)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = ts.RequestWithAuth(http.MethodPost, "/api/invitations/accept", inviteeToken, map[string]string{
			"token": sent.Token,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var accepted map[string]any
		require.NoError(t, ParseJSONResponse(resp, &accepted))
		assert.Equal(t, "active", accepted["status"])
		assert.Equal(t, org.ID, accepted["organization_id"])

		// Bound and active now
		resp, err = ts.RequestWithAuth(http.MethodGet, "/api/users/me", inviteeToken, nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("InvitationWrongTokenRejected", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))

		org, err := SeedOrganization(ctx, db.Pool, "Acme Inspections", "acme-inspections")
		require.NoError(t, err)
		_, err = SeedUser(ctx, db.Pool, "ext-admin", "admin@acme.test", "org_admin", "active", org.ID)
		require.NoError(t, err)

		adminToken := BearerToken("ext-admin", "admin@acme.test")
		resp, err := ts.RequestWithAuth(http.MethodPost, "/api/invitations/", adminToken, map[string]string{
			"email": "invitee@acme.test",
			"role":  "inspector",
		})
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		inviteeToken := BearerToken("ext-invitee", "invitee@acme.test")
		resp, err = ts.RequestWithAuth(http.MethodPost, "/api/invitations/accept", inviteeToken, map[string]string{
			"token": "not-the-token",
		})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("AnonymousRateLimit", func(t *testing.T) {
		require.NoError(t, db.CleanupTables(ctx))

		limit := ts.Config.RateLimit.BaseLimit
		for i := 0; i < limit; i++ {
			resp, err := ts.Request(http.MethodGet, "/api/pricing/", nil, nil)
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode, "request %d should be allowed", i+1)
		}

		resp, err := ts.Request(http.MethodGet, "/api/pricing/", nil, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

		var body map[string]any
		require.NoError(t, ParseJSONResponse(resp, &body))
		assert.Equal(t, "Too Many Requests", body["error"])
	})
}
