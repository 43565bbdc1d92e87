package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

func TestAnalysisCacheRoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewAnalysisCache(NewFromRedis(db))
	ctx := context.Background()

	a := domain.Assessment{
		Impact:         domain.ImpactHigh,
		OddsEfficiency: domain.OddsInefficient,
		Confidence:     domain.ConfidenceMedium,
		Analysis:       "Rain favours the underdog.",
		KeyFactors:     []string{"rain"},
	}
	data, err := json.Marshal(a)
	require.NoError(t, err)

	mock.ExpectSet("signalforge:analysis:weather|basic|london|abc", data, 30*time.Minute).SetVal("OK")
	require.NoError(t, cache.Set(ctx, "weather|basic|london|abc", a, 30*time.Minute))

	mock.ExpectGet("signalforge:analysis:weather|basic|london|abc").SetVal(string(data))
	got, ok, err := cache.Get(ctx, "weather|basic|london|abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, a, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisCacheMissAndError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewAnalysisCache(NewFromRedis(db))
	ctx := context.Background()

	mock.ExpectGet("signalforge:analysis:missing").RedisNil()
	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectGet("signalforge:analysis:broken").SetErr(errors.New("connection reset"))
	_, ok, err = cache.Get(ctx, "broken")
	assert.Error(t, err)
	assert.False(t, ok)

	mock.ExpectGet("signalforge:analysis:garbage").SetVal("not json")
	_, _, err = cache.Get(ctx, "garbage")
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockManager(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lm := NewLockManager(NewFromRedis(db))
	lm.newToken = func() string { return "token-1" }
	ctx := context.Background()

	mock.ExpectSetNX("signalforge:lock:resolution-sweep", "token-1", time.Minute).SetVal(true)
	unlock, err := lm.Acquire(ctx, "resolution-sweep", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, unlock)

	mock.ExpectSetNX("signalforge:lock:resolution-sweep", "token-1", time.Minute).SetVal(false)
	_, err = lm.Acquire(ctx, "resolution-sweep", time.Minute)
	assert.True(t, errors.Is(err, domain.ErrLockHeld))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignalBusPublish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	bus := NewSignalBus(NewFromRedis(db))

	mock.ExpectPublish("signalforge:"+domain.ChannelSignalCreated, []byte(`{"id":"s1"}`)).SetVal(1)
	require.NoError(t, bus.Publish(context.Background(), domain.ChannelSignalCreated, []byte(`{"id":"s1"}`)))

	mock.ExpectPublish("signalforge:"+domain.ChannelSignalResolved, []byte(`{}`)).SetErr(errors.New("down"))
	assert.Error(t, bus.Publish(context.Background(), domain.ChannelSignalResolved, []byte(`{}`)))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNamespace(t *testing.T) {
	db, mock := redismock.NewClientMock()
	bus := NewSignalBus(newClient(db, " staging: "))

	mock.ExpectPublish("staging:"+domain.ChannelSignalCreated, []byte(`{}`)).SetVal(0)
	require.NoError(t, bus.Publish(context.Background(), domain.ChannelSignalCreated, []byte(`{}`)))
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "signalforge:ratelimit:api:analyze:10.0.0.1", NewRateLimiter(NewFromRedis(db)).rateLimitKey("api:analyze:10.0.0.1"))
}

func TestNewRequiresAddr(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Addr: " "})
	assert.ErrorContains(t, err, "addr is required")
}

func TestHasPattern(t *testing.T) {
	assert.True(t, hasPattern("signal_*"))
	assert.False(t, hasPattern(domain.ChannelSignalCreated))
}
