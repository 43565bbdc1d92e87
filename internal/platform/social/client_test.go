package social

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

func TestRecentPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bills vs Jets", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"posts":[
			{"author":"a","text":"Bills win","likes":4,"created_at":"2026-03-01T10:00:00Z"},
			{"author":"b","text":"Jets upset","likes":1,"created_at":"bad"},
			{"author":"c","text":"extra","likes":0}
		]}`))
	}))
	defer srv.Close()

	posts, err := NewClient(srv.URL, "tok").RecentPosts(context.Background(), "Bills vs Jets", 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "a", posts[0].Author)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), posts[0].CreatedAt)
	assert.True(t, posts[1].CreatedAt.IsZero())

	_, err = NewClient(srv.URL, "").RecentPosts(context.Background(), "x", 1)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}
