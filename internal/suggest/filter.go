package suggest

import (
	"github.com/johnohhh1/teri-suggestions/internal/catalog"
)

// ReasonCode explains why an activity was excluded, for diagnostics only.
type ReasonCode string

const (
	ReasonRecentlyPlayed  ReasonCode = "recently_played"
	ReasonTooLong         ReasonCode = "too_long"
	ReasonContraindicated ReasonCode = "contraindicated"
)

// repetitionWindow is the number of most-recent plays an activity must stay
// out of before it can be suggested again.
const repetitionWindow = 3

// Partition splits the catalog into the three disjoint sets the orchestrator
// works with. Slices keep catalog insertion order.
type Partition struct {
	Eligible     []catalog.Activity
	TeaserLocked []catalog.Activity
	Excluded     map[string]ReasonCode
}

// partitionCatalog applies the hard eligibility rules. An activity failing
// any rule other than the level gate is excluded outright; one failing only
// the level gate becomes a teaser candidate. Unknown ids in RecentPlays
// (e.g. activities retired from the catalog) are ignored silently because
// membership is only ever checked for registered candidates.
//
// A TimeAvailable of 0 is honored as a real constraint: no activity has a
// minimum duration of zero, so nothing qualifies. "No time field at all" is
// the unspecified path.
func partitionCatalog(reg *catalog.Registry, sc Context) Partition {
	recent := make(map[string]struct{}, repetitionWindow)
	for i, play := range sc.RecentPlays {
		if i == repetitionWindow {
			break
		}
		recent[play.ActivityID] = struct{}{}
	}

	partition := Partition{Excluded: make(map[string]ReasonCode)}
	for _, act := range reg.All() {
		if _, played := recent[act.ID]; played {
			partition.Excluded[act.ID] = ReasonRecentlyPlayed
			continue
		}
		if sc.TimeAvailable != nil && act.DurationMin > *sc.TimeAvailable {
			partition.Excluded[act.ID] = ReasonTooLong
			continue
		}
		if sc.EmotionalState != "" && act.Contraindicated(sc.EmotionalState) {
			partition.Excluded[act.ID] = ReasonContraindicated
			continue
		}
		if act.LevelRequired > sc.CoupleLevel {
			partition.TeaserLocked = append(partition.TeaserLocked, act)
			continue
		}
		partition.Eligible = append(partition.Eligible, act)
	}
	return partition
}
