package s3blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// fakeBucket serves path-style requests for one bucket. Objects are keyed by
// the full object key.
type fakeBucket struct {
	name string

	mu      sync.Mutex
	objects map[string]string
	puts    []*http.Request
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/"+b.name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(rest, "/")

	switch {
	case key == "" && r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		b.puts = append(b.puts, r)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		if _, ok := b.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		body, ok := b.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, bucket *fakeBucket, bucketName string) *Client {
	t.Helper()
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), ClientConfig{
		Endpoint:       srv.URL,
		Region:         "us-east-1",
		Bucket:         bucketName,
		AccessKey:      "test",
		SecretKey:      "test",
		ForcePathStyle: true,
		Prefix:         "/signalforge/",
	})
	require.NoError(t, err)
	return c
}

func TestClientObjects(t *testing.T) {
	bucket := &fakeBucket{
		name:    "snapshots",
		objects: map[string]string{"signalforge/snapshots/abc.json": `{"domain":"weather"}`},
	}
	c := newTestClient(t, bucket, "snapshots")
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	ok, err := c.Exists(ctx, "snapshots/abc.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(ctx, "snapshots/missing.json")
	require.NoError(t, err)
	assert.False(t, ok)

	body, err := c.Get(ctx, "snapshots/abc.json")
	require.NoError(t, err)
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.JSONEq(t, `{"domain":"weather"}`, string(raw))

	_, err = c.Get(ctx, "snapshots/missing.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, c.Put(ctx, "snapshots/def.json", strings.NewReader(`{}`), "application/json"))
	require.Len(t, bucket.puts, 1)
	assert.Equal(t, "/snapshots/signalforge/snapshots/def.json", bucket.puts[0].URL.Path)
	assert.Equal(t, immutableCacheControl, bucket.puts[0].Header.Get("Cache-Control"))
}

func TestClientPingMissingBucket(t *testing.T) {
	c := newTestClient(t, &fakeBucket{name: "snapshots"}, "other")
	assert.Error(t, c.Ping(context.Background()))
}

func TestObjectKeyAndScheme(t *testing.T) {
	assert.Equal(t, "snapshots/a.json", (&Client{}).objectKey("/snapshots/a.json"))
	assert.Equal(t, "prod/snapshots/a.json", (&Client{prefix: "prod"}).objectKey("snapshots/a.json"))

	assert.Equal(t, "http://localhost:9000", withScheme("localhost:9000", false))
	assert.Equal(t, "https://minio.internal", withScheme("minio.internal", true))
	assert.Equal(t, "https://s3.example.com", withScheme("https://s3.example.com", false))
}

func TestNewValidates(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket")
	_, err = New(context.Background(), ClientConfig{Bucket: "b"})
	assert.ErrorContains(t, err, "region")
}
