// Package catalog provides the immutable activity registry shared by the
// suggestion engine. The registry is built once at process start and never
// mutated afterwards, so concurrent readers need no locking.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// EmotionalState is the controlled vocabulary for a partner's reported state.
type EmotionalState string

const (
	StateCalm       EmotionalState = "calm"
	StateFrustrated EmotionalState = "frustrated"
	StateSad        EmotionalState = "sad"
	StateAngry      EmotionalState = "angry"
	StateElevated   EmotionalState = "elevated"
)

// ParseEmotionalState normalizes and validates a raw state string.
func ParseEmotionalState(raw string) (EmotionalState, bool) {
	switch EmotionalState(strings.ToLower(strings.TrimSpace(raw))) {
	case StateCalm:
		return StateCalm, true
	case StateFrustrated:
		return StateFrustrated, true
	case StateSad:
		return StateSad, true
	case StateAngry:
		return StateAngry, true
	case StateElevated:
		return StateElevated, true
	}
	return "", false
}

// Activity is one structured relational exercise. Activities are owned by the
// registry and must never be mutated at runtime.
type Activity struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Themes            []string         `json:"themes"`
	Tags              []string         `json:"tags"`
	DurationMin       int              `json:"duration_min"`
	DurationMax       int              `json:"duration_max"`
	LevelRequired     int              `json:"level_required"`
	Contraindications []EmotionalState `json:"contraindications"`
	DebriefQuestions  []string         `json:"debrief_questions"`
}

// Contraindicated reports whether the activity should be withheld in the
// provided emotional state.
func (a Activity) Contraindicated(state EmotionalState) bool {
	for _, s := range a.Contraindications {
		if s == state {
			return true
		}
	}
	return false
}

// AddressesTheme reports whether the activity targets the given theme label.
func (a Activity) AddressesTheme(theme string) bool {
	for _, t := range a.Themes {
		if t == theme {
			return true
		}
	}
	return false
}

// Registry is the boot-time-loaded, read-only activity set. Insertion order
// is preserved and used as the deterministic tie-break for equal scores.
type Registry struct {
	activities []Activity
	positions  map[string]int
}

// New validates the activity definitions and builds a Registry.
func New(activities []Activity) (*Registry, error) {
	positions := make(map[string]int, len(activities))
	for i, act := range activities {
		if strings.TrimSpace(act.ID) == "" {
			return nil, fmt.Errorf("activity %d: missing id", i)
		}
		if _, dup := positions[act.ID]; dup {
			return nil, fmt.Errorf("activity %q: duplicate id", act.ID)
		}
		if strings.TrimSpace(act.Title) == "" {
			return nil, fmt.Errorf("activity %q: missing title", act.ID)
		}
		if act.DurationMin < 1 || act.DurationMax < act.DurationMin {
			return nil, fmt.Errorf("activity %q: invalid duration range [%d,%d]", act.ID, act.DurationMin, act.DurationMax)
		}
		if act.LevelRequired < 1 {
			return nil, fmt.Errorf("activity %q: level_required must be >= 1", act.ID)
		}
		for _, state := range act.Contraindications {
			if _, ok := ParseEmotionalState(string(state)); !ok {
				return nil, fmt.Errorf("activity %q: unknown contraindication %q", act.ID, state)
			}
		}
		positions[act.ID] = i
	}

	return &Registry{
		activities: append([]Activity(nil), activities...),
		positions:  positions,
	}, nil
}

// Get returns the activity for the id, if registered.
func (r *Registry) Get(id string) (Activity, bool) {
	i, ok := r.positions[id]
	if !ok {
		return Activity{}, false
	}
	return r.activities[i], true
}

// Position returns the catalog insertion index of the id.
func (r *Registry) Position(id string) (int, bool) {
	i, ok := r.positions[id]
	return i, ok
}

// All returns the activities in insertion order. The returned slice is a
// copy; the registry itself stays immutable.
func (r *Registry) All() []Activity {
	return append([]Activity(nil), r.activities...)
}

// Len returns the number of registered activities.
func (r *Registry) Len() int {
	return len(r.activities)
}

type catalogFile struct {
	Activities []Activity `json:"activities"`
}

func load(raw []byte) (*Registry, error) {
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Activities) == 0 {
		return nil, fmt.Errorf("catalog contains no activities")
	}
	return New(file.Activities)
}

// LoadFile builds a Registry from a catalog JSON file on disk.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return load(raw)
}
