package analysis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

func assessment(analysis string) domain.Assessment {
	return domain.Assessment{Confidence: domain.ConfidenceHigh, Analysis: analysis, KeyFactors: []string{"k"}}
}

func TestMemoryCacheEvictsOldestInsertion(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	require.NoError(t, c.Set(ctx, "a", assessment("a"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", assessment("b"), time.Hour))

	// Reading a does not protect it.
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "c", assessment("c"), time.Hour))

	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "b")
	assert.True(t, ok)
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestMemoryCacheOverwriteIsFreshInsertion(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	require.NoError(t, c.Set(ctx, "a", assessment("a1"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", assessment("b"), time.Hour))
	require.NoError(t, c.Set(ctx, "a", assessment("a2"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", assessment("c"), time.Hour))

	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok)
	got, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "a2", got.Analysis)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(10)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", assessment("x"), 30*time.Minute))

	now = now.Add(29 * time.Minute)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i+j)%80)
				_ = c.Set(ctx, key, assessment(key), time.Minute)
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}

func TestTTLPolicy(t *testing.T) {
	p := DefaultTTLPolicy()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 30*time.Minute, p.For(domain.ModeBasic, now.Add(72*time.Hour), now))
	assert.Equal(t, 6*time.Hour, p.For(domain.ModeDeep, now.Add(72*time.Hour), now))
	assert.Equal(t, time.Hour, p.For(domain.ModeDeep, now.Add(23*time.Hour), now))
	assert.Equal(t, 30*time.Minute, p.For(domain.ModeBasic, now.Add(2*time.Hour), now))
	assert.Equal(t, 6*time.Hour, p.For(domain.ModeDeep, time.Time{}, now))
}

func TestCacheKeyIgnoresIrrelevantMetadata(t *testing.T) {
	d := NewWeatherDomain(nil)
	snap := domain.WeatherSnapshot{Location: "London", TempC: 9.41, Condition: "Rain", WindKph: 20, PrecipMM: 1, Humidity: 80, ObservedAtUTC: "10:00"}

	a := domain.EnrichedContext{Context: domain.Context{EventID: "1", Title: "A", Location: "London"}, Domain: "weather", Payload: snap}
	snap.ObservedAtUTC = "10:05"
	snap.TempC = 9.44
	b := domain.EnrichedContext{Context: domain.Context{EventID: "2", Title: "B", Location: "London", Tags: []string{"x"}}, Domain: "weather", Payload: snap}

	ka, err := CacheKey(d, a)
	require.NoError(t, err)
	kb, err := CacheKey(d, b)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
	assert.Contains(t, ka, "analysis:weather:basic:london:")

	snap.Humidity = 81
	c := b
	c.Payload = snap
	kc, err := CacheKey(d, c)
	require.NoError(t, err)
	assert.NotEqual(t, ka, kc)
}
