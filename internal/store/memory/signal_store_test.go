package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

func TestSetOutcomeOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()
	require.NoError(t, s.Insert(ctx, domain.Signal{ID: "a", EventID: "e"}))

	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	applied, err := s.SetOutcome(ctx, "a", domain.OutcomeWin, at)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.SetOutcome(ctx, "a", domain.OutcomeLoss, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := s.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeWin, got.Outcome)
	assert.Equal(t, at, *got.ResolvedAt)

	pending, err := s.GetPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSetOutcomeConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()
	require.NoError(t, s.Insert(ctx, domain.Signal{ID: "a"}))

	var applied atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.SetOutcome(ctx, "a", domain.OutcomeWin, time.Now()); ok {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), applied.Load())
}

func TestInsertRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()
	require.NoError(t, s.Insert(ctx, domain.Signal{ID: "a"}))
	err := s.Insert(ctx, domain.Signal{ID: "a"})
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	_, err = s.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGetByAuthorOrdersByResolution(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()
	for _, id := range []string{"old", "pending", "new"} {
		require.NoError(t, s.Insert(ctx, domain.Signal{ID: id, AuthorAddress: "0xA"}))
	}
	require.NoError(t, s.Insert(ctx, domain.Signal{ID: "other", AuthorAddress: "0xB"}))

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, _ = s.SetOutcome(ctx, "old", domain.OutcomeLoss, base)
	_, _ = s.SetOutcome(ctx, "new", domain.OutcomeWin, base.Add(time.Hour))

	got, err := s.GetByAuthor(ctx, "0xA")
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, sig := range got {
		ids[i] = sig.ID
	}
	assert.Equal(t, []string{"new", "old", "pending"}, ids)
}

func TestAuditStoreList(t *testing.T) {
	ctx := context.Background()
	a := NewAuditStore()
	require.NoError(t, a.Log(ctx, "one", nil))
	require.NoError(t, a.Log(ctx, "two", map[string]any{"k": 1}))

	entries, err := a.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "two", entries[0].Event)
}
