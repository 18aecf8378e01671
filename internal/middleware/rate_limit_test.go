package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compia/compia/internal/auth"
	"github.com/compia/compia/internal/models"
	"github.com/compia/compia/internal/services"
	pkghttp "github.com/compia/compia/pkg/http"
)

type stubBucketStore struct {
	touch func(ctx context.Context, key string, window time.Duration) (*models.RateLimitBucket, error)
}

func (s *stubBucketStore) Touch(ctx context.Context, key string, window time.Duration) (*models.RateLimitBucket, error) {
	return s.touch(ctx, key, window)
}

func newTestLimiter(store services.RateLimitRepository) *services.RateLimitService {
	return services.NewRateLimitService(store, services.RateLimitConfig{
		BaseLimit:               60,
		Window:                  time.Minute,
		AuthenticatedMultiplier: 5,
	}, slog.Default())
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_SetsHeadersOnAllowedRequest(t *testing.T) {
	reset := time.Now().Add(time.Minute)
	store := &stubBucketStore{
		touch: func(ctx context.Context, key string, window time.Duration) (*models.RateLimitBucket, error) {
			return &models.RateLimitBucket{Key: key, Points: 5, ExpireAt: reset}, nil
		},
	}

	handler := RateLimit(newTestLimiter(store), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/inspections", nil)
	req.RemoteAddr = "203.0.113.5:4455"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "55", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, strconv.FormatInt(reset.Unix(), 10), rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_KeysAnonymousCallersByIP(t *testing.T) {
	var gotKey string
	store := &stubBucketStore{
		touch: func(ctx context.Context, key string, window time.Duration) (*models.RateLimitBucket, error) {
			gotKey = key
			return &models.RateLimitBucket{Key: key, Points: 1, ExpireAt: time.Now().Add(time.Minute)}, nil
		},
	}

	handler := RateLimit(newTestLimiter(store), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/pricing", nil)
	req.RemoteAddr = "203.0.113.5:4455"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "ip:203.0.113.5", gotKey)
}

func TestRateLimit_KeysAuthenticatedCallersByUser(t *testing.T) {
	var gotKey string
	store := &stubBucketStore{
		touch: func(ctx context.Context, key string, window time.Duration) (*models.RateLimitBucket, error) {
			gotKey = key
			return &models.RateLimitBucket{Key: key, Points: 1, ExpireAt: time.Now().Add(time.Minute)}, nil
		},
	}

	handler := RateLimit(newTestLimiter(store), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/inspections", nil)
	req.RemoteAddr = "203.0.113.5:4455"
	identity := &models.Identity{Subject: "ext-1", UserID: "user-1", Source: models.IdentitySourceBearer}
	req = req.WithContext(auth.WithIdentity(req.Context(), identity))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "user:user-1", gotKey)
	assert.Equal(t, "300", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimit_RejectsWith429Envelope(t *testing.T) {
	store := &stubBucketStore{
		touch: func(ctx context.Context, key string, window time.Duration) (*models.RateLimitBucket, error) {
			return &models.RateLimitBucket{Key: key, Points: 61, ExpireAt: time.Now().Add(time.Minute)}, nil
		},
	}

	handler := RateLimit(newTestLimiter(store), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/inspections", nil)
	req.RemoteAddr = "203.0.113.5:4455"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	var body pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Too Many Requests", body.Error)
	assert.NotEmpty(t, body.Message)
}

func TestRateLimit_FailsOpenOnStoreError(t *testing.T) {
	store := &stubBucketStore{
		touch: func(ctx context.Context, key string, window time.Duration) (*models.RateLimitBucket, error) {
			return nil, errors.New("connection refused")
		},
	}

	handler := RateLimit(newTestLimiter(store), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/inspections", nil)
	req.RemoteAddr = "203.0.113.5:4455"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_SkipsPreflight(t *testing.T) {
	touched := false
	store := &stubBucketStore{
		touch: func(ctx context.Context, key string, window time.Duration) (*models.RateLimitBucket, error) {
			touched = true
			return nil, nil
		},
	}

	handler := RateLimit(newTestLimiter(store), nil)(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/inspections", nil)
	req.RemoteAddr = "203.0.113.5:4455"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, touched)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
