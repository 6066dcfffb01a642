package suggest

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/johnohhh1/teri-suggestions/internal/catalog"
	"github.com/johnohhh1/teri-suggestions/internal/themes"
)

var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	reg := seedRegistry(t)
	vocab, err := themes.LoadSeedThemes()
	require.NoError(t, err)

	quiet := log.New(io.Discard, "", 0)
	extractor := themes.NewExtractor(nil, vocab, themes.Options{Logger: quiet})

	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(quiet),
	}, opts...)
	return NewService(reg, extractor, opts...)
}

func suggestionIDs(suggestions []Suggestion) []string {
	out := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, s.Activity.ID)
	}
	return out
}

func requireRankedInvariants(t *testing.T, suggestions []Suggestion) {
	t.Helper()
	for i, s := range suggestions {
		require.GreaterOrEqual(t, s.Score, 0.0)
		require.LessOrEqual(t, s.Score, 1.0)
		if i > 0 {
			require.LessOrEqual(t, s.Score, suggestions[i-1].Score, "list must be sorted non-increasing")
		}
	}
}

func TestSuggestRequiresCoupleLevel(t *testing.T) {
	service := newTestService(t)

	_, err := service.Suggest(context.Background(), Context{})
	require.ErrorIs(t, err, ErrCoupleLevelRequired)

	_, err = service.Suggest(context.Background(), Context{CoupleLevel: -1})
	require.ErrorIs(t, err, ErrCoupleLevelRequired)
}

// A heated, time-pressed moment should surface a short de-escalation
// activity and never anything long.
func TestSuggestElevatedShortOnTime(t *testing.T) {
	service := newTestService(t)

	suggestions, err := service.Suggest(context.Background(), Context{
		Transcript:     "You never help! I'm so tired of this!",
		TimeAvailable:  intPtr(5),
		EmotionalState: catalog.StateElevated,
		CoupleLevel:    3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	requireRankedInvariants(t, suggestions)

	require.Equal(t, "pause", suggestions[0].Activity.ID)
	for _, s := range suggestions {
		require.LessOrEqual(t, s.Activity.DurationMin, 5, "%s does not fit the available time", s.Activity.ID)
		require.True(t, s.Available)
	}
}

// A reflective, roomy evening should rank a longer closeness activity above
// the quick daily check-in.
func TestSuggestLongerIntimacyOutranksCheckIn(t *testing.T) {
	service := newTestService(t)

	suggestions, err := service.Suggest(context.Background(), Context{
		Transcript:     "We feel like roommates, I miss us",
		TimeAvailable:  intPtr(60),
		EmotionalState: catalog.StateSad,
		RecentPlays:    []Play{{ActivityID: "a1"}, {ActivityID: "a2"}}, // retired ids, ignored
		CoupleLevel:    5,
	})
	require.NoError(t, err)
	require.Len(t, suggestions, DefaultTopN)
	requireRankedInvariants(t, suggestions)

	require.Equal(t, "closeness_counter", suggestions[0].Activity.ID)

	ranked := suggestionIDs(suggestions)
	require.Contains(t, ranked, "iwr")
	require.Less(t, indexOf(ranked, "closeness_counter"), indexOf(ranked, "iwr"))
}

// Two different phrasings of the same complaint should agree on the top
// suggestion.
func TestSuggestParaphrasesConverge(t *testing.T) {
	service := newTestService(t)

	base := Context{CoupleLevel: 4}

	first := base
	first.Transcript = "You never help! I'm so tired of this!"
	second := base
	second.Transcript = "I always end up doing the dishes alone"

	suggestionsA, err := service.Suggest(context.Background(), first)
	require.NoError(t, err)
	suggestionsB, err := service.Suggest(context.Background(), second)
	require.NoError(t, err)

	require.NotEmpty(t, suggestionsA)
	require.NotEmpty(t, suggestionsB)
	require.Equal(t, "and_what_else", suggestionsA[0].Activity.ID)
	require.Equal(t, suggestionsA[0].Activity.ID, suggestionsB[0].Activity.ID)
}

func TestSuggestDeterministic(t *testing.T) {
	service := newTestService(t)

	sc := Context{
		Transcript:     "We keep fighting about the same thing, you never listen",
		TimeAvailable:  intPtr(30),
		EmotionalState: catalog.StateFrustrated,
		RecentPlays:    []Play{{ActivityID: "pause", PlayedAt: fixedNow.Add(-48 * time.Hour)}},
		CoupleLevel:    4,
		Preferences:    map[string]float64{"switch": 0.8},
	}

	first, err := service.Suggest(context.Background(), sc)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := service.Suggest(context.Background(), sc)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestSuggestSkipsThreeMostRecentAndSurfacesTeaser(t *testing.T) {
	service := newTestService(t)

	recent := []Play{
		{ActivityID: "iwr", PlayedAt: fixedNow.Add(-20 * time.Hour)},
		{ActivityID: "pause", PlayedAt: fixedNow.Add(-44 * time.Hour)},
		{ActivityID: "gratitude_volley", PlayedAt: fixedNow.Add(-68 * time.Hour)},
	}

	suggestions, err := service.Suggest(context.Background(), Context{
		CoupleLevel: 2,
		RecentPlays: recent,
	})
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	requireRankedInvariants(t, suggestions)

	ranked := suggestionIDs(suggestions)
	for _, play := range recent {
		require.NotContains(t, ranked, play.ActivityID)
	}

	require.Equal(t, []string{"and_what_else", "pillar_talk", "switch"}, ranked)
	require.True(t, suggestions[0].Available)
	require.True(t, suggestions[1].Available)

	teaser := suggestions[2]
	require.False(t, teaser.Available)
	require.Equal(t, 3, teaser.UnlockAtLevel)
	require.Equal(t, teaser.Activity.LevelRequired, teaser.UnlockAtLevel)
}

func TestSuggestTeaserOnlyWhenNothingEligible(t *testing.T) {
	service := newTestService(t)

	suggestions, err := service.Suggest(context.Background(), Context{
		CoupleLevel: 1,
		RecentPlays: []Play{
			{ActivityID: "iwr", PlayedAt: fixedNow.Add(-3 * time.Hour)},
			{ActivityID: "pause", PlayedAt: fixedNow.Add(-5 * time.Hour)},
			{ActivityID: "gratitude_volley", PlayedAt: fixedNow.Add(-7 * time.Hour)},
		},
	})
	require.NoError(t, err)

	require.Len(t, suggestions, 1, "only the single teaser slot may be filled")
	require.False(t, suggestions[0].Available)
	require.Equal(t, "and_what_else", suggestions[0].Activity.ID)
	require.Equal(t, 2, suggestions[0].UnlockAtLevel)
}

func TestSuggestAtMostOneTeaser(t *testing.T) {
	service := newTestService(t, WithTopN(10))

	suggestions, err := service.Suggest(context.Background(), Context{CoupleLevel: 2})
	require.NoError(t, err)
	requireRankedInvariants(t, suggestions)

	teasers := 0
	for _, s := range suggestions {
		if !s.Available {
			teasers++
		}
	}
	require.LessOrEqual(t, teasers, 1)
}

func TestSuggestContraindicatedNeverAppears(t *testing.T) {
	service := newTestService(t, WithTopN(10))

	suggestions, err := service.Suggest(context.Background(), Context{
		CoupleLevel:    5,
		EmotionalState: catalog.StateElevated,
	})
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	for _, s := range suggestions {
		require.False(t, s.Activity.Contraindicated(catalog.StateElevated),
			"%s is contraindicated for elevated state", s.Activity.ID)
	}
}

func TestSuggestZeroTimeYieldsEmptyResult(t *testing.T) {
	service := newTestService(t)

	suggestions, err := service.Suggest(context.Background(), Context{
		CoupleLevel:   5,
		TimeAvailable: intPtr(0),
	})
	require.NoError(t, err)
	require.Empty(t, suggestions)
}

func TestSuggestRecentPlayLosesFreshness(t *testing.T) {
	service := newTestService(t, WithTopN(10))

	// Three retired ids fill the anti-repetition window; the stale iwr play
	// only dampens its freshness.
	sc := Context{
		CoupleLevel: 1,
		RecentPlays: []Play{
			{ActivityID: "retired_a"},
			{ActivityID: "retired_b"},
			{ActivityID: "retired_c"},
			{ActivityID: "iwr", PlayedAt: fixedNow.Add(-2 * time.Hour)},
		},
	}

	suggestions, err := service.Suggest(context.Background(), sc)
	require.NoError(t, err)

	ranked := suggestionIDs(suggestions)
	require.Contains(t, ranked, "iwr")
	require.Less(t, indexOf(ranked, "pause"), indexOf(ranked, "iwr"),
		"a just-played activity must rank below an unplayed peer")
}

func TestSuggestRationaleNeverQuotesTranscript(t *testing.T) {
	service := newTestService(t, WithTopN(10))

	transcript := "You spent our savings on that ridiculous boat, I can't trust you"
	suggestions, err := service.Suggest(context.Background(), Context{
		Transcript:  transcript,
		CoupleLevel: 5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	for _, s := range suggestions {
		require.NotEmpty(t, s.Rationale)
		require.NotContains(t, s.Rationale, "boat")
		require.NotContains(t, s.Rationale, transcript)
	}
}

func indexOf(list []string, target string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return len(list)
}

func TestSuggestEmptyTranscriptStillRanks(t *testing.T) {
	service := newTestService(t)

	suggestions, err := service.Suggest(context.Background(), Context{CoupleLevel: 3})
	require.NoError(t, err)
	require.Len(t, suggestions, DefaultTopN)
	requireRankedInvariants(t, suggestions)

	// Without themes the level-one staples win on level fit.
	require.Subset(t, []string{"iwr", "pause", "gratitude_volley"}, suggestionIDs(suggestions))
}
