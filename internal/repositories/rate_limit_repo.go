package repositories

import (
	"context"
	"time"

	"github.com/compia/compia/internal/database"
	"github.com/compia/compia/internal/models"
)

type RateLimitRepository struct {
	db database.Querier
}

func NewRateLimitRepository(db *database.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db.Pool}
}

// Touch records one request against the bucket for key and returns the
// post-increment state. The reset-or-increment branch is evaluated inside
// the upsert so two concurrent requests racing across a window boundary
// cannot both reset the counter independently.
func (r *RateLimitRepository) Touch(ctx context.Context, key string, window time.Duration) (*models.RateLimitBucket, error) {
	query := `
		INSERT INTO rate_limit_buckets (key, points, expire_at)
		VALUES ($1, 1, now() + make_interval(secs => $2))
		ON CONFLICT (key) DO UPDATE SET
			points = CASE
				WHEN rate_limit_buckets.expire_at <= now() THEN 1
				ELSE rate_limit_buckets.points + 1
			END,
			expire_at = CASE
				WHEN rate_limit_buckets.expire_at <= now() THEN now() + make_interval(secs => $2)
				ELSE rate_limit_buckets.expire_at
			END
		RETURNING key, points, expire_at
	`

	var bucket models.RateLimitBucket
	err := r.db.QueryRow(ctx, query, key, window.Seconds()).Scan(
		&bucket.Key, &bucket.Points, &bucket.ExpireAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &bucket, nil
}

// Get reads a bucket without mutating it. Used by the admin console.
func (r *RateLimitRepository) Get(ctx context.Context, key string) (*models.RateLimitBucket, error) {
	query := `SELECT key, points, expire_at FROM rate_limit_buckets WHERE key = $1`

	var bucket models.RateLimitBucket
	err := r.db.QueryRow(ctx, query, key).Scan(&bucket.Key, &bucket.Points, &bucket.ExpireAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &bucket, nil
}

// DeleteExpired purges buckets whose window closed before the cutoff.
// Correctness does not depend on this; it only keeps the table small.
func (r *RateLimitRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM rate_limit_buckets WHERE expire_at < $1`

	result, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
