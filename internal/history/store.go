// Package history reads and records per-couple play history and feedback.
// The suggestion engine only ever reads from it; writes come from the Kafka
// consumer ingesting game events.
package history

import (
	"context"
	"time"
)

// Play is one completed activity session.
type Play struct {
	ActivityID string
	PlayedAt   time.Time
}

// Store is the persistence contract shared by the Postgres repository and
// the in-memory implementation used in tests and local development.
type Store interface {
	// RecentPlays returns plays within the window, most-recent-first.
	RecentPlays(ctx context.Context, coupleID string, window time.Duration) ([]Play, error)

	// PreferenceRatios returns the helpful-feedback ratio per activity in
	// [0,1]. Activities with no feedback are absent from the map.
	PreferenceRatios(ctx context.Context, coupleID string) (map[string]float64, error)

	// RecordPlay persists one completed session.
	RecordPlay(ctx context.Context, coupleID, activityID string, playedAt time.Time) error

	// RecordFeedback persists one helpful/unhelpful rating.
	RecordFeedback(ctx context.Context, coupleID, activityID string, helpful bool, recordedAt time.Time) error
}
