// Package suggest implements the activity recommendation engine: eligibility
// filtering, multi-factor weighted scoring, rationale generation, and the
// orchestration that turns a conversational snapshot into a ranked,
// explainable suggestion list.
package suggest

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/johnohhh1/teri-suggestions/internal/catalog"
	"github.com/johnohhh1/teri-suggestions/internal/themes"
)

// ErrCoupleLevelRequired is returned when the context is missing the one
// mandatory field.
var ErrCoupleLevelRequired = errors.New("couple_level is required and must be >= 1")

// DefaultTopN is the number of ranked suggestions returned per request.
const DefaultTopN = 3

// Play records one recently played activity, most-recent-first in Context.
// A zero PlayedAt means the caller supplied the id without a timestamp.
type Play struct {
	ActivityID string
	PlayedAt   time.Time
}

// Context is the per-request snapshot the engine scores against. It is
// caller-owned and read-only here.
type Context struct {
	Transcript     string
	TimeAvailable  *int // minutes; nil means unspecified, 0 means no time at all
	EmotionalState catalog.EmotionalState
	RecentPlays    []Play // most-recent-first, within a 7-day window
	CoupleLevel    int
	Preferences    map[string]float64 // per-activity helpful ratio in [0,1]
}

// Validate checks the one required field. Everything else has defaults.
func (c Context) Validate() error {
	if c.CoupleLevel < 1 {
		return ErrCoupleLevelRequired
	}
	return nil
}

// Suggestion is one ranked recommendation.
type Suggestion struct {
	Activity      catalog.Activity
	Score         float64
	Rationale     string
	Available     bool
	UnlockAtLevel int // set only when Available is false
}

// ThemeExtractor abstracts theme extraction for the engine.
type ThemeExtractor interface {
	Extract(ctx context.Context, text string) []themes.Match
}

// Service is the stateless orchestrator. Safe for concurrent use: the only
// shared state is the immutable registry.
type Service struct {
	registry  *catalog.Registry
	extractor ThemeExtractor
	weights   Weights
	topN      int
	now       func() time.Time
	logger    *log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTopN overrides the ranked-list size.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithWeights overrides the scoring weights. Invalid weight sets (not
// summing to 1) are ignored in favor of the defaults.
func WithWeights(w Weights) Option {
	return func(s *Service) {
		if w.valid() {
			s.weights = w
		}
	}
}

// WithClock fixes the clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger overrides the engine logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs the engine over an immutable registry.
func NewService(registry *catalog.Registry, extractor ThemeExtractor, opts ...Option) *Service {
	s := &Service{
		registry:  registry,
		extractor: extractor,
		weights:   DefaultWeights(),
		topN:      DefaultTopN,
		now:       time.Now,
		logger:    log.New(log.Writer(), "[suggest] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type candidate struct {
	activity catalog.Activity
	score    float64
	teaser   bool
}

// Suggest produces the ranked suggestion list for the context. The only
// error path is context validation; nothing downstream of theme extraction
// can fail the call.
func (s *Service) Suggest(ctx context.Context, sc Context) ([]Suggestion, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	// Step 1: theme extraction. Degrades internally, never raises.
	inputThemes := s.extractor.Extract(ctx, sc.Transcript)

	// Step 2: partition the catalog.
	partition := partitionCatalog(s.registry, sc)

	// Step 3: score eligible candidates. Iteration follows catalog order,
	// so a later stable sort gives the insertion-order tie-break for free.
	candidates := make([]candidate, 0, len(partition.Eligible)+1)
	for _, act := range partition.Eligible {
		levelFit := levelFitScore(sc.CoupleLevel, act.LevelRequired)
		candidates = append(candidates, candidate{
			activity: act,
			score:    s.weights.combine(act, inputThemes, sc, levelFit, now),
		})
	}

	// Step 4: at most one teaser, scored with its unlocked-equivalent
	// level fit, never counted as available.
	if teaser, ok := s.pickTeaser(partition.TeaserLocked, inputThemes, sc, now); ok {
		candidates = append(candidates, teaser)
	}

	// Step 5: rank and truncate.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > s.topN {
		candidates = candidates[:s.topN]
	}

	// Steps 6-7: attach rationale and assemble the response.
	suggestions := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		suggestion := Suggestion{
			Activity:  c.activity,
			Score:     round2(c.score),
			Rationale: rationaleFor(c.activity, inputThemes, sc),
			Available: !c.teaser,
		}
		if c.teaser {
			suggestion.UnlockAtLevel = c.activity.LevelRequired
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

// pickTeaser scores the teaser-locked set and keeps the single best. Ties go
// to catalog order via the stable iteration.
func (s *Service) pickTeaser(locked []catalog.Activity, inputThemes []themes.Match, sc Context, now time.Time) (candidate, bool) {
	best := candidate{teaser: true}
	found := false
	unlockedFit := clamp01(1 / float64(sc.CoupleLevel))
	for _, act := range locked {
		score := s.weights.combine(act, inputThemes, sc, unlockedFit, now)
		if !found || score > best.score {
			best.activity = act
			best.score = score
			found = true
		}
	}
	return best, found
}
