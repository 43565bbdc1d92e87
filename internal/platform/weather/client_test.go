package weather

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

func TestCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/current.json", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		switch r.URL.Query().Get("q") {
		case "London":
			_, _ = w.Write([]byte(`{"location":{"name":"London","country":"United Kingdom"},
				"current":{"last_updated":"2026-03-01 12:00","temp_c":9.5,"feelslike_c":7.1,"wind_kph":22.3,
				"precip_mm":1.2,"humidity":88,"condition":{"text":"Light rain"}}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":1006,"message":"No matching location found."}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 0)

	snap, err := c.Current(context.Background(), "London")
	require.NoError(t, err)
	assert.Equal(t, "London, United Kingdom", snap.Location)
	assert.Equal(t, "Light rain", snap.Condition)
	assert.Equal(t, 88, snap.Humidity)
	assert.InDelta(t, 9.5, snap.TempC, 1e-9)

	_, err = c.Current(context.Background(), "Atlantis")
	assert.True(t, errors.Is(err, domain.ErrUnresolvableDomainInput))
}

func TestCurrentUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":2008,"message":"API key disabled"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad", 0).Current(context.Background(), "London")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}
