package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// AnalysisCache implements domain.AnalysisCache with JSON values under
// expiring keys, so every process behind the same Redis shares provider
// answers. Redis evicts by TTL; the key space is bounded by the server's
// maxmemory policy.
type AnalysisCache struct {
	rdb  *redis.Client
	keys keyspace
}

// NewAnalysisCache creates an AnalysisCache backed by the given Client.
func NewAnalysisCache(c *Client) *AnalysisCache {
	return &AnalysisCache{rdb: c.rdb, keys: c.keys}
}

// Get returns the assessment stored under key.
func (ac *AnalysisCache) Get(ctx context.Context, key string) (domain.Assessment, bool, error) {
	data, err := ac.rdb.Get(ctx, ac.keys.key("analysis", key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Assessment{}, false, nil
		}
		return domain.Assessment{}, false, fmt.Errorf("redis: get analysis %s: %w", key, err)
	}

	var a domain.Assessment
	if err := json.Unmarshal(data, &a); err != nil {
		return domain.Assessment{}, false, fmt.Errorf("redis: unmarshal analysis %s: %w", key, err)
	}
	return a, true, nil
}

// Set stores a under key for ttl.
func (ac *AnalysisCache) Set(ctx context.Context, key string, a domain.Assessment, ttl time.Duration) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("redis: marshal analysis %s: %w", key, err)
	}
	if err := ac.rdb.Set(ctx, ac.keys.key("analysis", key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set analysis %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.AnalysisCache = (*AnalysisCache)(nil)
