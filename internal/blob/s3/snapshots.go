package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// SnapshotArchive keeps the exact EnrichedContext each signal was computed
// over, keyed by its market snapshot hash.
//
//	snapshots/{hash}.json
type SnapshotArchive struct {
	writer domain.BlobWriter
	reader domain.BlobReader
}

// NewSnapshotArchive creates a SnapshotArchive over the given blob backends.
func NewSnapshotArchive(writer domain.BlobWriter, reader domain.BlobReader) *SnapshotArchive {
	return &SnapshotArchive{writer: writer, reader: reader}
}

func snapshotPath(hash string) string {
	return "snapshots/" + hash + ".json"
}

// Put stores the snapshot unless one with the same hash is already archived.
// Snapshots are content-addressed so an existing object is never rewritten.
func (a *SnapshotArchive) Put(ctx context.Context, hash string, ec domain.EnrichedContext) error {
	path := snapshotPath(hash)

	exists, err := a.reader.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("s3blob: snapshot %s: %w", hash, err)
	}
	if exists {
		return nil
	}

	data, err := json.Marshal(ec)
	if err != nil {
		return fmt.Errorf("s3blob: marshal snapshot %s: %w", hash, err)
	}

	if int64(len(data)) > minPartSize {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(data), minPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(data), "application/json")
}

// Get returns the raw archived snapshot JSON for hash.
func (a *SnapshotArchive) Get(ctx context.Context, hash string) ([]byte, error) {
	body, err := a.reader.Get(ctx, snapshotPath(hash))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("s3blob: get snapshot %s: %w", hash, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("s3blob: read snapshot %s: %w", hash, err)
	}
	return data, nil
}
