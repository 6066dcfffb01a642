package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// recentPlaysLimit bounds the rows fetched per request; the engine only
// needs the 7-day window and the anti-repetition head of the list.
const recentPlaysLimit = 50

// Repository provides Postgres-backed play history and feedback ratios.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecentPlays implements Store.
func (r *Repository) RecentPlays(ctx context.Context, coupleID string, window time.Duration) ([]Play, error) {
	const query = `SELECT activity_id, played_at FROM game_plays
        WHERE couple_id=$1 AND played_at >= $2
        ORDER BY played_at DESC
        LIMIT $3`

	cutoff := time.Now().UTC().Add(-window)
	rows, err := r.pool.Query(ctx, query, coupleID, cutoff, recentPlaysLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plays := make([]Play, 0, 8)
	for rows.Next() {
		var play Play
		if err := rows.Scan(&play.ActivityID, &play.PlayedAt); err != nil {
			return nil, err
		}
		plays = append(plays, play)
	}
	return plays, rows.Err()
}

// PreferenceRatios implements Store.
func (r *Repository) PreferenceRatios(ctx context.Context, coupleID string) (map[string]float64, error) {
	const query = `SELECT activity_id, AVG(CASE WHEN helpful THEN 1.0 ELSE 0.0 END)
        FROM game_feedback
        WHERE couple_id=$1
        GROUP BY activity_id`

	rows, err := r.pool.Query(ctx, query, coupleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratios := make(map[string]float64)
	for rows.Next() {
		var activityID string
		var ratio float64
		if err := rows.Scan(&activityID, &ratio); err != nil {
			return nil, err
		}
		ratios[activityID] = ratio
	}
	return ratios, rows.Err()
}

// RecordPlay implements Store.
func (r *Repository) RecordPlay(ctx context.Context, coupleID, activityID string, playedAt time.Time) error {
	const query = `INSERT INTO game_plays (play_id, couple_id, activity_id, played_at)
        VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, uuid.NewString(), coupleID, activityID, playedAt.UTC())
	return err
}

// RecordFeedback implements Store.
func (r *Repository) RecordFeedback(ctx context.Context, coupleID, activityID string, helpful bool, recordedAt time.Time) error {
	const query = `INSERT INTO game_feedback (feedback_id, couple_id, activity_id, helpful, recorded_at)
        VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, uuid.NewString(), coupleID, activityID, helpful, recordedAt.UTC())
	return err
}
