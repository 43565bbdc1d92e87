package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// BlobStore keeps objects in memory. It satisfies both domain.BlobWriter and
// domain.BlobReader.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewBlobStore returns an empty BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string][]byte)}
}

func (s *BlobStore) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("memory: put %s: %w", path, err)
	}
	s.mu.Lock()
	s.objects[path] = b
	s.mu.Unlock()
	return nil
}

func (s *BlobStore) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return s.Put(ctx, path, data, "")
}

func (s *BlobStore) Get(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	b, ok := s.objects[path]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *BlobStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok, nil
}

var (
	_ domain.BlobWriter = (*BlobStore)(nil)
	_ domain.BlobReader = (*BlobStore)(nil)
)
