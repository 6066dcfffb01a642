package themes

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/johnohhh1/teri-suggestions/internal/observability"
)

// minSignalLength is the shortest input (in runes) worth extracting from.
// Anything shorter carries too little signal and yields no themes.
const minSignalLength = 10

// FallbackConfidence is assigned to every keyword match on the degraded
// path. No similarity ranking is attempted there; matches keep the
// vocabulary order so the output stays deterministic.
const FallbackConfidence = 0.8

// Retriever answers nearest-neighbor queries over the theme embedding index.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]Match, error)
}

// Options tunes an Extractor. Zero values fall back to production defaults.
type Options struct {
	MaxThemes int           // top-k cap, default 5
	Threshold float64       // minimum cosine similarity, default 0.7
	Timeout   time.Duration // bound on the retrieval call, default 2s
	Logger    *log.Logger
}

// Extractor converts free text into a ranked, deduplicated list of theme
// matches. Retrieval failures are never surfaced to callers; the keyword
// path takes over instead.
type Extractor struct {
	retriever Retriever
	themes    []Theme
	maxThemes int
	threshold float64
	timeout   time.Duration
	logger    *log.Logger
}

// NewExtractor builds an Extractor over the given vocabulary. retriever may
// be nil, in which case every extraction uses the keyword path.
func NewExtractor(retriever Retriever, vocabulary []Theme, opts Options) *Extractor {
	if opts.MaxThemes <= 0 {
		opts.MaxThemes = 5
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 0.7
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[themes] ", log.LstdFlags)
	}
	return &Extractor{
		retriever: retriever,
		themes:    vocabulary,
		maxThemes: opts.MaxThemes,
		threshold: opts.Threshold,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
}

// Extract returns theme matches ordered by descending confidence, capped at
// the configured maximum. It never returns an error: retrieval problems
// degrade to keyword containment against the vocabulary.
func (e *Extractor) Extract(ctx context.Context, text string) []Match {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minSignalLength {
		return nil
	}

	if e.retriever != nil {
		queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		matches, err := e.retriever.Query(queryCtx, trimmed, e.maxThemes)
		if err == nil {
			return e.rank(matches)
		}
		e.logger.Printf("retrieval failed, using keyword fallback: %v", err)
		observability.RecordThemeFallback()
	}

	return e.keywordMatches(trimmed)
}

// rank filters by threshold, deduplicates keeping the highest confidence per
// theme, sorts descending, and caps at the configured maximum.
func (e *Extractor) rank(matches []Match) []Match {
	best := make(map[string]float64, len(matches))
	order := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Theme == "" || m.Confidence < e.threshold {
			continue
		}
		if prev, seen := best[m.Theme]; !seen {
			best[m.Theme] = m.Confidence
			order = append(order, m.Theme)
		} else if m.Confidence > prev {
			best[m.Theme] = m.Confidence
		}
	}

	ranked := make([]Match, 0, len(order))
	for _, theme := range order {
		ranked = append(ranked, Match{Theme: theme, Confidence: best[theme]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	if len(ranked) > e.maxThemes {
		ranked = ranked[:e.maxThemes]
	}
	return ranked
}

// keywordMatches is the degraded path: case-insensitive containment against
// each theme's keyword list, fixed confidence, vocabulary order.
func (e *Extractor) keywordMatches(text string) []Match {
	lowered := strings.ToLower(text)

	matches := make([]Match, 0, 4)
	for _, theme := range e.themes {
		for _, keyword := range theme.Keywords {
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				matches = append(matches, Match{Theme: theme.ID, Confidence: FallbackConfidence})
				break
			}
		}
		if len(matches) == e.maxThemes {
			break
		}
	}
	if len(matches) == 0 {
		return nil
	}
	return matches
}
