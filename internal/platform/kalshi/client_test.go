package kalshi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

func kalshiServer(t *testing.T, markets map[string]string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("KALSHI-ACCESS-SIGNATURE"))
		body, ok := markets[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"market not found"}}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "")
}

func TestGetResolution(t *testing.T) {
	c := kalshiServer(t, map[string]string{
		"/markets/OPEN":    `{"market":{"ticker":"OPEN","status":"open","result":""}}`,
		"/markets/SETTLED": `{"market":{"ticker":"SETTLED","status":"settled","result":"yes","close_time":"2026-03-01T00:00:00Z"}}`,
		"/markets/NO":      `{"market":{"ticker":"NO","status":"finalized","result":"no"}}`,
	})
	ctx := context.Background()

	rec, err := c.GetResolution(ctx, "OPEN")
	require.NoError(t, err)
	assert.False(t, rec.Resolved)

	rec, err = c.GetResolution(ctx, "SETTLED")
	require.NoError(t, err)
	assert.True(t, rec.Resolved)
	assert.Equal(t, domain.SideYes, rec.Outcome)
	assert.Equal(t, 2026, rec.ResolvedAt.Year())

	rec, err = c.GetResolution(ctx, "NO")
	require.NoError(t, err)
	assert.Equal(t, domain.SideNo, rec.Outcome)
	assert.True(t, rec.ResolvedAt.IsZero())

	_, err = c.GetResolution(ctx, "GONE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "market not found")
}

func TestMarketContext(t *testing.T) {
	c := kalshiServer(t, map[string]string{
		"/markets/KXRAIN-NYC": `{"market":{"ticker":"KXRAIN-NYC","event_ticker":"KXRAIN","title":"Rain in NYC today?",
			"yes_bid":30,"yes_ask":34,"no_bid":66,"no_ask":70,"category":"Climate","close_time":"2026-03-01T23:59:00Z"}}`,
	})

	ctx, err := c.MarketContext(context.Background(), "KXRAIN-NYC")
	require.NoError(t, err)
	assert.Equal(t, "KXRAIN", ctx.EventID)
	assert.Equal(t, "KXRAIN-NYC", ctx.MarketID)
	assert.InDelta(t, 0.32, ctx.CurrentOdds.Yes, 1e-9)
	assert.InDelta(t, 0.68, ctx.CurrentOdds.No, 1e-9)
	assert.Equal(t, []string{"Climate"}, ctx.Tags)
}
