package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreRecentPlaysOrderedAndWindowed(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	now := time.Now().UTC()

	require.NoError(t, store.RecordPlay(ctx, "couple-1", "pause", now.Add(-72*time.Hour)))
	require.NoError(t, store.RecordPlay(ctx, "couple-1", "iwr", now.Add(-2*time.Hour)))
	require.NoError(t, store.RecordPlay(ctx, "couple-1", "switch", now.Add(-10*24*time.Hour)))
	require.NoError(t, store.RecordPlay(ctx, "couple-2", "iwr", now.Add(-time.Hour)))

	plays, err := store.RecentPlays(ctx, "couple-1", 7*24*time.Hour)
	require.NoError(t, err)

	require.Len(t, plays, 2, "plays outside the window must be dropped")
	require.Equal(t, "iwr", plays[0].ActivityID)
	require.Equal(t, "pause", plays[1].ActivityID)
}

func TestInMemoryStorePreferenceRatios(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	now := time.Now().UTC()

	require.NoError(t, store.RecordFeedback(ctx, "couple-1", "pause", true, now))
	require.NoError(t, store.RecordFeedback(ctx, "couple-1", "pause", true, now))
	require.NoError(t, store.RecordFeedback(ctx, "couple-1", "pause", false, now))
	require.NoError(t, store.RecordFeedback(ctx, "couple-1", "iwr", false, now))

	ratios, err := store.PreferenceRatios(ctx, "couple-1")
	require.NoError(t, err)

	require.InDelta(t, 2.0/3.0, ratios["pause"], 1e-9)
	require.InDelta(t, 0.0, ratios["iwr"], 1e-9)
	require.NotContains(t, ratios, "switch", "activities with no feedback stay absent")
}

func TestInMemoryStoreIsolatesCouples(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	now := time.Now().UTC()

	require.NoError(t, store.RecordPlay(ctx, "couple-1", "pause", now))

	plays, err := store.RecentPlays(ctx, "couple-2", 7*24*time.Hour)
	require.NoError(t, err)
	require.Empty(t, plays)

	ratios, err := store.PreferenceRatios(ctx, "couple-2")
	require.NoError(t, err)
	require.Empty(t, ratios)
}
