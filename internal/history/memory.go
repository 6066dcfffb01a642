package history

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps play history in memory for tests and local
// development. Unlike the registry this is mutable, so it carries a lock.
type InMemoryStore struct {
	mu       sync.RWMutex
	plays    map[string][]Play // couple id -> most-recent-first
	feedback map[string]map[string][2]int
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		plays:    make(map[string][]Play),
		feedback: make(map[string]map[string][2]int),
	}
}

// RecentPlays implements Store.
func (s *InMemoryStore) RecentPlays(ctx context.Context, coupleID string, window time.Duration) ([]Play, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-window)
	out := make([]Play, 0, 8)
	for _, play := range s.plays[coupleID] {
		if play.PlayedAt.Before(cutoff) {
			continue
		}
		out = append(out, play)
	}
	return out, nil
}

// PreferenceRatios implements Store.
func (s *InMemoryStore) PreferenceRatios(ctx context.Context, coupleID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratios := make(map[string]float64)
	for activityID, counts := range s.feedback[coupleID] {
		total := counts[0] + counts[1]
		if total == 0 {
			continue
		}
		ratios[activityID] = float64(counts[0]) / float64(total)
	}
	return ratios, nil
}

// RecordPlay implements Store, keeping the list most-recent-first.
func (s *InMemoryStore) RecordPlay(ctx context.Context, coupleID, activityID string, playedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	play := Play{ActivityID: activityID, PlayedAt: playedAt.UTC()}
	existing := s.plays[coupleID]
	inserted := false
	updated := make([]Play, 0, len(existing)+1)
	for _, p := range existing {
		if !inserted && !p.PlayedAt.After(play.PlayedAt) {
			updated = append(updated, play)
			inserted = true
		}
		updated = append(updated, p)
	}
	if !inserted {
		updated = append(updated, play)
	}
	s.plays[coupleID] = updated
	return nil
}

// RecordFeedback implements Store. Index 0 counts helpful, index 1 counts
// unhelpful.
func (s *InMemoryStore) RecordFeedback(ctx context.Context, coupleID, activityID string, helpful bool, recordedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	perActivity, ok := s.feedback[coupleID]
	if !ok {
		perActivity = make(map[string][2]int)
		s.feedback[coupleID] = perActivity
	}
	counts := perActivity[activityID]
	if helpful {
		counts[0]++
	} else {
		counts[1]++
	}
	perActivity[activityID] = counts
	return nil
}
