package suggest

import (
	"fmt"
	"strings"

	"github.com/johnohhh1/teri-suggestions/internal/catalog"
	"github.com/johnohhh1/teri-suggestions/internal/themes"
)

// Rationale generation walks an ordered rule list and returns the first
// matching template, falling back to the activity's own description.
//
// Templates only ever reference catalog metadata and controlled-vocabulary
// theme labels. The caller's raw transcript must never appear in rationale
// text, which ends up in UI copy and logs.

type rationaleRule struct {
	applies func(act catalog.Activity, input []themes.Match, sc Context) bool
	text    func(act catalog.Activity, input []themes.Match) string
}

var rationaleRules = []rationaleRule{
	{
		// Heated moment, short activity: lead with de-escalation.
		applies: func(act catalog.Activity, _ []themes.Match, sc Context) bool {
			heated := sc.EmotionalState == catalog.StateElevated || sc.EmotionalState == catalog.StateAngry
			return heated && act.DurationMax <= 10
		},
		text: func(catalog.Activity, []themes.Match) string {
			return "A short reset to help things cool down before they spiral further."
		},
	},
	{
		applies: func(act catalog.Activity, input []themes.Match, _ Context) bool {
			return hasTheme(input, "resentment") && act.AddressesTheme("resentment")
		},
		text: func(catalog.Activity, []themes.Match) string {
			return "A safe container to clear resentment that has been building up."
		},
	},
	{
		applies: func(act catalog.Activity, input []themes.Match, _ Context) bool {
			closeness := hasTheme(input, "disconnection") || hasTheme(input, "intimacy")
			return closeness && (act.AddressesTheme("disconnection") || act.AddressesTheme("intimacy"))
		},
		text: func(catalog.Activity, []themes.Match) string {
			return "Rebuilds closeness at a moment when you're feeling far apart."
		},
	},
	{
		// Top extracted theme is one the activity targets directly.
		applies: func(act catalog.Activity, input []themes.Match, _ Context) bool {
			return len(input) > 0 && act.AddressesTheme(input[0].Theme)
		},
		text: func(_ catalog.Activity, input []themes.Match) string {
			return fmt.Sprintf("Speaks directly to the %s pattern coming up between you.", humanizeTheme(input[0].Theme))
		},
	},
	{
		applies: func(act catalog.Activity, _ []themes.Match, sc Context) bool {
			return sc.TimeAvailable != nil && act.DurationMax <= *sc.TimeAvailable
		},
		text: func(catalog.Activity, []themes.Match) string {
			return "Fits comfortably in the time you have right now."
		},
	},
}

func rationaleFor(act catalog.Activity, input []themes.Match, sc Context) string {
	for _, rule := range rationaleRules {
		if rule.applies(act, input, sc) {
			return rule.text(act, input)
		}
	}
	return act.Description
}

func hasTheme(input []themes.Match, theme string) bool {
	for _, m := range input {
		if m.Theme == theme {
			return true
		}
	}
	return false
}

func humanizeTheme(theme string) string {
	return strings.ReplaceAll(theme, "_", " ")
}
