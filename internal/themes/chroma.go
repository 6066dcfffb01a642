package themes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ChromaRetriever queries a ChromaDB collection of precomputed theme
// embeddings. A circuit breaker short-circuits queries while the service is
// down so requests stop paying the full timeout on every call.
type ChromaRetriever struct {
	baseURL    string
	collection string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker[[]Match]

	mu           sync.Mutex
	collectionID string
}

// NewChromaRetriever constructs a retriever for the named collection.
func NewChromaRetriever(baseURL, collection string, timeout time.Duration) *ChromaRetriever {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[[]Match](gobreaker.Settings{
		Name:    "chroma-themes",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &ChromaRetriever{
		baseURL:    baseURL,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type chromaQueryRequest struct {
	QueryTexts []string `json:"query_texts"`
	NResults   int      `json:"n_results"`
	Include    []string `json:"include"`
}

type chromaQueryResponse struct {
	IDs       [][]string            `json:"ids"`
	Distances [][]float64           `json:"distances"`
	Metadatas [][]map[string]string `json:"metadatas"`
}

// Query implements Retriever against Chroma's HTTP API. Confidence is
// derived from the returned cosine distance (1 - distance, clamped).
func (r *ChromaRetriever) Query(ctx context.Context, text string, topK int) ([]Match, error) {
	return r.breaker.Execute(func() ([]Match, error) {
		return r.query(ctx, text, topK)
	})
}

func (r *ChromaRetriever) query(ctx context.Context, text string, topK int) ([]Match, error) {
	collectionID, err := r.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chromaQueryRequest{
		QueryTexts: []string{text},
		NResults:   topK,
		Include:    []string{"metadatas", "distances"},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/collections/%s/query", r.baseURL, collectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chroma query returned status %d", resp.StatusCode)
	}

	var decoded chromaQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode chroma response: %w", err)
	}
	if len(decoded.IDs) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(decoded.IDs[0]))
	for i := range decoded.IDs[0] {
		theme := decoded.IDs[0][i]
		if len(decoded.Metadatas) > 0 && i < len(decoded.Metadatas[0]) {
			if label, ok := decoded.Metadatas[0][i]["theme"]; ok && label != "" {
				theme = label
			}
		}
		confidence := 0.0
		if len(decoded.Distances) > 0 && i < len(decoded.Distances[0]) {
			confidence = 1 - decoded.Distances[0][i]
		}
		if confidence < 0 {
			confidence = 0
		} else if confidence > 1 {
			confidence = 1
		}
		matches = append(matches, Match{Theme: theme, Confidence: confidence})
	}
	return matches, nil
}

// resolveCollection maps the collection name to its Chroma id, caching the
// result for the life of the process.
func (r *ChromaRetriever) resolveCollection(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.collectionID != "" {
		return r.collectionID, nil
	}

	url := fmt.Sprintf("%s/api/v1/collections/%s", r.baseURL, r.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chroma collection lookup returned status %d", resp.StatusCode)
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decode chroma collection: %w", err)
	}
	if collection.ID == "" {
		return "", fmt.Errorf("chroma collection %q has no id", r.collection)
	}

	r.collectionID = collection.ID
	return r.collectionID, nil
}
