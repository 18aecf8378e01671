package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitRepository_Touch_IncrementsBucket(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := &RateLimitRepository{db: mockDB}
	expireAt := time.Now().Add(45 * time.Second)

	rows := pgxmock.NewRows([]string{"key", "points", "expire_at"}).
		AddRow("ip:203.0.113.5", 7, expireAt)

	mockDB.ExpectQuery("INSERT INTO rate_limit_buckets").
		WithArgs("ip:203.0.113.5", float64(60)).
		WillReturnRows(rows)

	bucket, err := repo.Touch(context.Background(), "ip:203.0.113.5", time.Minute)

	assert.NoError(t, err)
	require.NotNil(t, bucket)
	assert.Equal(t, "ip:203.0.113.5", bucket.Key)
	assert.Equal(t, 7, bucket.Points)
	assert.Equal(t, expireAt, bucket.ExpireAt)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRateLimitRepository_Touch_SingleStatement(t *testing.T) {
	// The reset-vs-increment decision must be one round trip: a read followed
	// by a write would race at the window boundary.
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := &RateLimitRepository{db: mockDB}

	rows := pgxmock.NewRows([]string{"key", "points", "expire_at"}).
		AddRow("user:abc", 1, time.Now().Add(time.Minute))

	mockDB.ExpectQuery("ON CONFLICT \\(key\\) DO UPDATE").
		WithArgs("user:abc", float64(60)).
		WillReturnRows(rows)

	_, err = repo.Touch(context.Background(), "user:abc", time.Minute)

	assert.NoError(t, err)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRateLimitRepository_Touch_PropagatesStoreError(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := &RateLimitRepository{db: mockDB}

	mockDB.ExpectQuery("INSERT INTO rate_limit_buckets").
		WithArgs("ip:10.0.0.1", float64(60)).
		WillReturnError(errors.New("connection refused"))

	bucket, err := repo.Touch(context.Background(), "ip:10.0.0.1", time.Minute)

	assert.Error(t, err)
	assert.Nil(t, bucket)
}

func TestRateLimitRepository_DeleteExpired(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := &RateLimitRepository{db: mockDB}
	cutoff := time.Now().Add(-time.Hour)

	mockDB.ExpectExec("DELETE FROM rate_limit_buckets").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	deleted, err := repo.DeleteExpired(context.Background(), cutoff)

	assert.NoError(t, err)
	assert.Equal(t, int64(42), deleted)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}
