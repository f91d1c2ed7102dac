package llmcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"subtitle-hub/pkg/logger"
)

// AnalysisCache stores non-streaming LLM analysis responses in redis so a
// repeated question over the same subtitle text skips the provider call.
// Nil-safe: a nil cache is a cache that always misses.
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnalysisCache(client *redis.Client, ttl time.Duration) *AnalysisCache {
	if client == nil {
		return nil
	}
	return &AnalysisCache{client: client, ttl: ttl}
}

// Key derives the cache key from everything that influences the answer.
func Key(provider, model string, temperature float32, instructions, subtitleText string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%.2f|%s|", provider, model, temperature, instructions)
	h.Write([]byte(subtitleText))
	return "subtitle-hub:analysis:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached answer or "" on miss. Redis trouble is logged and
// treated as a miss.
func (c *AnalysisCache) Get(ctx context.Context, key string) string {
	if c == nil {
		return ""
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("analysis cache read failed key=%s error=%v", key, err)
		}
		return ""
	}
	return val
}

// Set stores an answer; failures are logged and swallowed.
func (c *AnalysisCache) Set(ctx context.Context, key, answer string) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key, answer, c.ttl).Err(); err != nil {
		logger.Warnf("analysis cache write failed key=%s error=%v", key, err)
	}
}
