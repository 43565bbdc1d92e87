package polymarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

func gammaServer(t *testing.T, markets map[string]string) *GammaClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := markets[r.URL.Path]
		if !ok {
			http.Error(w, "market not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewGammaClient(srv.URL)
}

func TestGetResolution(t *testing.T) {
	g := gammaServer(t, map[string]string{
		"/markets/open": `{"id":"open","closed":false,"outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.4\",\"0.6\"]"}`,
		"/markets/won-token": `{"id":"won-token","closed":true,"closedTime":"2026-02-01T18:30:00Z",
			"tokens":[{"outcome":"Yes","winner":false},{"outcome":"No","winner":true}]}`,
		"/markets/won-price": `{"id":"won-price","closed":true,"outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"1\",\"0\"]","updatedAt":"2026-02-02T10:00:00Z"}`,
		"/markets/disputed":  `{"id":"disputed","closed":true,"outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.5\",\"0.5\"]"}`,
	})
	ctx := context.Background()

	rec, err := g.GetResolution(ctx, "open")
	require.NoError(t, err)
	assert.False(t, rec.Resolved)

	rec, err = g.GetResolution(ctx, "won-token")
	require.NoError(t, err)
	assert.True(t, rec.Resolved)
	assert.Equal(t, domain.SideNo, rec.Outcome)
	assert.Equal(t, time.Date(2026, 2, 1, 18, 30, 0, 0, time.UTC), rec.ResolvedAt)

	rec, err = g.GetResolution(ctx, "won-price")
	require.NoError(t, err)
	assert.True(t, rec.Resolved)
	assert.Equal(t, domain.SideYes, rec.Outcome)

	rec, err = g.GetResolution(ctx, "disputed")
	require.NoError(t, err)
	assert.False(t, rec.Resolved)

	_, err = g.GetResolution(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMarketContext(t *testing.T) {
	g := gammaServer(t, map[string]string{
		"/markets/42": `{"id":"42","question":"Will the Chiefs win at Arrowhead Stadium?","outcomes":"[\"Yes\",\"No\"]",
			"outcomePrices":"[\"0.71\",\"0.29\"]","gameStartTime":"2026-11-01 18:00:00+00","endDate":"2026-11-02T00:00:00Z"}`,
	})

	c, err := g.MarketContext(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", c.EventID)
	assert.Equal(t, "42", c.MarketID)
	assert.Equal(t, Platform, c.Platform)
	assert.InDelta(t, 0.71, c.CurrentOdds.Yes, 1e-9)
	assert.InDelta(t, 0.29, c.CurrentOdds.No, 1e-9)
	assert.Equal(t, time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC), c.EventDate)
}
