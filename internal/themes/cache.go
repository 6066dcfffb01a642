package themes

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/johnohhh1/teri-suggestions/internal/observability"
)

// CachedRetriever is a read-through cache in front of a Retriever. Keys are
// hashes of the transcript so raw conversational text never lands in redis.
// Any cache failure falls through to the inner retriever.
type CachedRetriever struct {
	inner  Retriever
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCachedRetriever wraps inner with a redis cache.
func NewCachedRetriever(inner Retriever, rdb *redis.Client, ttl time.Duration) *CachedRetriever {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedRetriever{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		logger: log.New(log.Writer(), "[themes-cache] ", log.LstdFlags),
	}
}

func cacheKey(text string, topK int) string {
	return fmt.Sprintf("themes:v1:%d:%x", topK, xxhash.Sum64String(text))
}

// Query implements Retriever.
func (c *CachedRetriever) Query(ctx context.Context, text string, topK int) ([]Match, error) {
	key := cacheKey(text, topK)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var matches []Match
		if err := json.Unmarshal(raw, &matches); err == nil {
			observability.RecordThemeCacheLookup(true)
			return matches, nil
		}
	}
	observability.RecordThemeCacheLookup(false)

	matches, err := c.inner.Query(ctx, text, topK)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(matches); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Printf("cache write failed: %v", err)
		}
	}
	return matches, nil
}
