package suggest

import (
	"math"
	"time"

	"github.com/johnohhh1/teri-suggestions/internal/catalog"
	"github.com/johnohhh1/teri-suggestions/internal/themes"
)

// Neutral sub-score constants used when an input is unspecified. Tunable,
// but changing them shifts the ranking of every sparse request.
const (
	NeutralTimeFit    = 0.5
	NeutralPreference = 0.5

	// unknownPlayFreshness covers plays supplied as bare ids with no
	// timestamp: assume mid-window rather than brand new or fully stale.
	unknownPlayFreshness = 0.5
)

// Freshness curve: an activity played within freshnessFloor scores 0 and
// climbs linearly to 1 at freshnessCeiling unplayed.
const (
	freshnessFloor   = 24 * time.Hour
	freshnessCeiling = 7 * 24 * time.Hour
)

// Weights are the per-factor multipliers. They must sum to 1.0 so the
// combined score stays in [0,1] given clamped sub-scores.
type Weights struct {
	Theme      float64
	Time       float64
	Level      float64
	Freshness  float64
	Preference float64
}

// DefaultWeights returns the production weight set.
func DefaultWeights() Weights {
	return Weights{
		Theme:      0.45,
		Time:       0.20,
		Level:      0.20,
		Freshness:  0.10,
		Preference: 0.05,
	}
}

func (w Weights) valid() bool {
	sum := w.Theme + w.Time + w.Level + w.Freshness + w.Preference
	return math.Abs(sum-1.0) < 1e-9
}

// combine computes the weighted score for one candidate. levelFit is passed
// in because the teaser path substitutes its unlocked-equivalent value.
func (w Weights) combine(act catalog.Activity, inputThemes []themes.Match, sc Context, levelFit float64, now time.Time) float64 {
	return w.Theme*themeMatchScore(inputThemes, act) +
		w.Time*timeFitScore(sc.TimeAvailable, act) +
		w.Level*clamp01(levelFit) +
		w.Freshness*freshnessScore(now, act.ID, sc.RecentPlays) +
		w.Preference*preferenceScore(sc.Preferences, act.ID)
}

// themeMatchScore is the set overlap between extracted themes and the
// activity's themes: |A∩B| / max(|A|, |B|, 1). Zero when nothing was
// extracted.
func themeMatchScore(input []themes.Match, act catalog.Activity) float64 {
	if len(input) == 0 {
		return 0
	}
	overlap := 0
	for _, m := range input {
		if act.AddressesTheme(m.Theme) {
			overlap++
		}
	}
	denominator := len(input)
	if len(act.Themes) > denominator {
		denominator = len(act.Themes)
	}
	if denominator < 1 {
		denominator = 1
	}
	return clamp01(float64(overlap) / float64(denominator))
}

// timeFitScore rewards activities whose duration midpoint sits close to the
// available time. Unspecified time is neutral.
func timeFitScore(available *int, act catalog.Activity) float64 {
	if available == nil {
		return NeutralTimeFit
	}
	midpoint := float64(act.DurationMin+act.DurationMax) / 2
	deviation := math.Abs(float64(*available)-midpoint) / midpoint
	return 1 - clamp01(deviation)
}

// levelFitScore climbs toward 1 as the couple outgrows the requirement:
// clamp((L - required + 1) / L).
func levelFitScore(coupleLevel, levelRequired int) float64 {
	return clamp01(float64(coupleLevel-levelRequired+1) / float64(coupleLevel))
}

// freshnessScore is 1 for never-played activities, 0 within the floor, and
// linear in between up to the ceiling.
func freshnessScore(now time.Time, activityID string, recent []Play) float64 {
	for _, play := range recent {
		if play.ActivityID != activityID {
			continue
		}
		if play.PlayedAt.IsZero() {
			return unknownPlayFreshness
		}
		elapsed := now.Sub(play.PlayedAt)
		if elapsed <= freshnessFloor {
			return 0
		}
		if elapsed >= freshnessCeiling {
			return 1
		}
		return float64(elapsed-freshnessFloor) / float64(freshnessCeiling-freshnessFloor)
	}
	return 1
}

// preferenceScore reads the precomputed helpful ratio, defaulting to neutral
// when the couple has no feedback history for the activity.
func preferenceScore(prefs map[string]float64, activityID string) float64 {
	ratio, ok := prefs[activityID]
	if !ok {
		return NeutralPreference
	}
	return clamp01(ratio)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
