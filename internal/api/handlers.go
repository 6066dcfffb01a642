// Package api exposes HTTP handlers for the suggestion service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/johnohhh1/teri-suggestions/internal/auth"
	"github.com/johnohhh1/teri-suggestions/internal/catalog"
	"github.com/johnohhh1/teri-suggestions/internal/history"
	"github.com/johnohhh1/teri-suggestions/internal/observability"
	"github.com/johnohhh1/teri-suggestions/internal/suggest"
)

// Handler coordinates HTTP requests with the suggestion engine.
type Handler struct {
	service      *suggest.Service
	registry     *catalog.Registry
	store        history.Store
	recentWindow time.Duration
	logger       *log.Logger
}

// NewHandler builds a Handler. The store may be nil, in which case requests
// must carry their own recent_games and preferences are skipped.
func NewHandler(service *suggest.Service, registry *catalog.Registry, store history.Store, recentWindow time.Duration, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(log.Writer(), "[api] ", log.LstdFlags)
	}
	if recentWindow <= 0 {
		recentWindow = 7 * 24 * time.Hour
	}
	return &Handler{
		service:      service,
		registry:     registry,
		store:        store,
		recentWindow: recentWindow,
		logger:       logger,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/suggestions", h.suggestions)
	mux.HandleFunc("/v1/activities", h.listActivities)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSuggestionsRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope suggestions:read required")
		return
	}

	var req SuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	state, _ := catalog.ParseEmotionalState(req.EmotionalState)

	sc := suggest.Context{
		Transcript:     req.Transcript,
		TimeAvailable:  req.TimeAvailableMinutes,
		EmotionalState: state,
		CoupleLevel:    req.CoupleLevel,
		RecentPlays:    h.recentPlays(r, req, claims.CoupleID),
		Preferences:    h.preferences(r, claims.CoupleID),
	}

	start := time.Now()
	results, err := h.service.Suggest(r.Context(), sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	observability.ObserveSuggestRequest(time.Since(start), len(results))

	resp := SuggestionsResponse{Suggestions: make([]SuggestionView, 0, len(results))}
	for _, s := range results {
		resp.Suggestions = append(resp.Suggestions, toSuggestionView(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// recentPlays prefers ids supplied on the request over the stored history;
// clients that track sessions locally stay authoritative for their own view.
func (h *Handler) recentPlays(r *http.Request, req SuggestionRequest, coupleID string) []suggest.Play {
	if len(req.RecentGames) > 0 {
		plays := make([]suggest.Play, 0, len(req.RecentGames))
		for _, id := range req.RecentGames {
			plays = append(plays, suggest.Play{ActivityID: id})
		}
		return plays
	}
	if h.store == nil {
		return nil
	}

	stored, err := h.store.RecentPlays(r.Context(), coupleID, h.recentWindow)
	if err != nil {
		h.logger.Printf("recent plays lookup failed (couple=%s): %v", coupleID, err)
		return nil
	}
	plays := make([]suggest.Play, 0, len(stored))
	for _, p := range stored {
		plays = append(plays, suggest.Play{ActivityID: p.ActivityID, PlayedAt: p.PlayedAt})
	}
	return plays
}

func (h *Handler) preferences(r *http.Request, coupleID string) map[string]float64 {
	if h.store == nil {
		return nil
	}
	ratios, err := h.store.PreferenceRatios(r.Context(), coupleID)
	if err != nil {
		h.logger.Printf("preference lookup failed (couple=%s): %v", coupleID, err)
		return nil
	}
	return ratios
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeActivitiesRead) && !claims.HasScope(auth.ScopeSuggestionsRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:read required")
		return
	}

	activities := h.registry.All()
	resp := ListActivitiesResponse{Items: make([]ActivityView, 0, len(activities))}
	for _, act := range activities {
		resp.Items = append(resp.Items, toActivityView(act))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SuggestionRequest is the payload for POST /v1/suggestions.
type SuggestionRequest struct {
	Transcript           string   `json:"transcript"`
	TimeAvailableMinutes *int     `json:"time_available_minutes"`
	EmotionalState       string   `json:"emotional_state"`
	RecentGames          []string `json:"recent_games"`
	CoupleLevel          int      `json:"couple_level"`
}

// Validate ensures request correctness.
func (r SuggestionRequest) Validate() error {
	if r.CoupleLevel < 1 {
		return errors.New("couple_level is required and must be >= 1")
	}
	if r.TimeAvailableMinutes != nil && *r.TimeAvailableMinutes < 0 {
		return errors.New("time_available_minutes must be >= 0")
	}
	if trimmed := strings.TrimSpace(r.EmotionalState); trimmed != "" {
		if _, ok := catalog.ParseEmotionalState(trimmed); !ok {
			return fmt.Errorf("unknown emotional_state %q", trimmed)
		}
	}
	return nil
}

// SuggestionView is one ranked suggestion as returned to the app.
type SuggestionView struct {
	ActivityID    string  `json:"activity_id"`
	Title         string  `json:"title"`
	DurationMin   int     `json:"duration_min"`
	DurationMax   int     `json:"duration_max"`
	LevelRequired int     `json:"level_required"`
	Score         float64 `json:"score"`
	Rationale     string  `json:"rationale"`
	Available     bool    `json:"available"`
	UnlockAtLevel int     `json:"unlock_at_level,omitempty"`
}

// SuggestionsResponse packages the ranked list.
type SuggestionsResponse struct {
	Suggestions []SuggestionView `json:"suggestions"`
}

// ActivityView exposes catalog details about an activity.
type ActivityView struct {
	ActivityID        string   `json:"activity_id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Themes            []string `json:"themes"`
	DurationMin       int      `json:"duration_min"`
	DurationMax       int      `json:"duration_max"`
	LevelRequired     int      `json:"level_required"`
	Contraindications []string `json:"contraindications,omitempty"`
	DebriefQuestions  []string `json:"debrief_questions,omitempty"`
}

// ListActivitiesResponse packages catalog results.
type ListActivitiesResponse struct {
	Items []ActivityView `json:"items"`
}

func toSuggestionView(s suggest.Suggestion) SuggestionView {
	return SuggestionView{
		ActivityID:    s.Activity.ID,
		Title:         s.Activity.Title,
		DurationMin:   s.Activity.DurationMin,
		DurationMax:   s.Activity.DurationMax,
		LevelRequired: s.Activity.LevelRequired,
		Score:         s.Score,
		Rationale:     s.Rationale,
		Available:     s.Available,
		UnlockAtLevel: s.UnlockAtLevel,
	}
}

func toActivityView(act catalog.Activity) ActivityView {
	contra := make([]string, 0, len(act.Contraindications))
	for _, state := range act.Contraindications {
		contra = append(contra, string(state))
	}
	return ActivityView{
		ActivityID:        act.ID,
		Title:             act.Title,
		Description:       act.Description,
		Themes:            act.Themes,
		DurationMin:       act.DurationMin,
		DurationMax:       act.DurationMax,
		LevelRequired:     act.LevelRequired,
		Contraindications: contra,
		DebriefQuestions:  act.DebriefQuestions,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
