package analysis

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/signalforge/internal/domain"
	"github.com/alanyoungcy/signalforge/internal/hashing"
)

// DefaultCacheEntries bounds the in-memory cache when no size is configured.
const DefaultCacheEntries = 500

type cacheEntry struct {
	key        string
	assessment domain.Assessment
	expiresAt  time.Time
}

// MemoryCache is a process-local domain.AnalysisCache. It is bounded and
// evicts the oldest inserted entry on overflow; reads do not refresh an
// entry's position. Expired entries are dropped lazily on read.
type MemoryCache struct {
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = oldest insertion
}

// NewMemoryCache creates a MemoryCache holding at most maxEntries entries.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get returns the live assessment stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) (domain.Assessment, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.Assessment{}, false, nil
	}
	e := el.Value.(*cacheEntry)
	if !c.now().Before(e.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		return domain.Assessment{}, false, nil
	}
	return e.assessment, true, nil
}

// Set stores a under key for ttl. Overwriting a key counts as a fresh
// insertion.
func (c *MemoryCache) Set(_ context.Context, key string, a domain.Assessment, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
	for c.order.Len() >= c.maxEntries {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}

	c.entries[key] = c.order.PushBack(&cacheEntry{
		key:        key,
		assessment: a,
		expiresAt:  c.now().Add(ttl),
	})
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

var _ domain.AnalysisCache = (*MemoryCache)(nil)

// TTLPolicy decides how long an assessment stays cached.
type TTLPolicy struct {
	Basic      time.Duration
	Deep       time.Duration
	NearEvent  time.Duration
	NearWindow time.Duration
}

// DefaultTTLPolicy returns the reference windows: 30 minutes for basic
// analyses, 6 hours for deep ones, capped at 1 hour when the event is less
// than 24 hours away.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Basic:      30 * time.Minute,
		Deep:       6 * time.Hour,
		NearEvent:  time.Hour,
		NearWindow: 24 * time.Hour,
	}
}

// For returns the TTL for an analysis in mode about an event at eventDate.
func (p TTLPolicy) For(mode domain.AnalysisMode, eventDate, now time.Time) time.Duration {
	ttl := p.Basic
	if mode == domain.ModeDeep {
		ttl = p.Deep
	}
	if !eventDate.IsZero() && eventDate.Sub(now) < p.NearWindow && ttl > p.NearEvent {
		ttl = p.NearEvent
	}
	return ttl
}

// CacheKey builds the cache key for an enriched context: the domain, mode
// and place plus a hash of the facts that can change the provider's answer.
// Contexts differing only in other metadata share a key.
func CacheKey(d Domain, ec domain.EnrichedContext) (string, error) {
	place := ec.Context.Place()
	var facts any = ec.Payload
	if k, ok := d.(CacheKeyer); ok {
		place, facts = k.CacheFacts(ec)
	}

	h, err := hashing.Of(facts)
	if err != nil {
		return "", err
	}

	mode := ec.Context.Mode
	if mode == "" {
		mode = domain.ModeBasic
	}
	return strings.Join([]string{
		"analysis",
		d.Name(),
		string(mode),
		strings.ToLower(strings.TrimSpace(place)),
		h,
	}, ":"), nil
}
