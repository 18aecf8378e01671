package repositories

import (
	"context"
	"time"

	"github.com/compia/compia/internal/database"
)

// StatsRepository backs the system-admin business-intelligence console with
// read-only aggregates.
type StatsRepository struct {
	db database.Querier
}

func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{db: db.Pool}
}

type PlatformStats struct {
	Organizations     int64
	Users             int64
	PendingUsers      int64
	Inspections       int64
	InspectionsWeek   int64
	ActiveRateBuckets int64
}

func (r *StatsRepository) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	query := `
		SELECT
			(SELECT count(*) FROM organizations),
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM users WHERE status = 'pending'),
			(SELECT count(*) FROM inspections),
			(SELECT count(*) FROM inspections WHERE created_at > $1),
			(SELECT count(*) FROM rate_limit_buckets WHERE expire_at > now())
	`

	weekAgo := time.Now().AddDate(0, 0, -7)

	var stats PlatformStats
	err := r.db.QueryRow(ctx, query, weekAgo).Scan(
		&stats.Organizations, &stats.Users, &stats.PendingUsers,
		&stats.Inspections, &stats.InspectionsWeek, &stats.ActiveRateBuckets,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &stats, nil
}

type InspectionVolume struct {
	Day   time.Time
	Count int64
}

// InspectionVolumeByDay returns daily inspection counts for the trailing
// window, newest first.
func (r *StatsRepository) InspectionVolumeByDay(ctx context.Context, days int) ([]InspectionVolume, error) {
	query := `
		SELECT date_trunc('day', created_at) AS day, count(*)
		FROM inspections
		WHERE created_at > now() - make_interval(days => $1)
		GROUP BY day ORDER BY day DESC
	`

	rows, err := r.db.Query(ctx, query, days)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	volumes := make([]InspectionVolume, 0)
	for rows.Next() {
		var v InspectionVolume
		if err := rows.Scan(&v.Day, &v.Count); err != nil {
			return nil, database.MapPostgresError(err)
		}
		volumes = append(volumes, v)
	}

	return volumes, rows.Err()
}
