// Package memory holds process-local implementations of the store, blob and
// bus interfaces, used when no external backend is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// SignalStore is a mutex-guarded, in-memory domain.SignalStore.
type SignalStore struct {
	mu      sync.RWMutex
	signals map[string]domain.Signal
	order   []string
}

// NewSignalStore returns an empty SignalStore.
func NewSignalStore() *SignalStore {
	return &SignalStore{signals: make(map[string]domain.Signal)}
}

func (s *SignalStore) Insert(_ context.Context, sig domain.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.signals[sig.ID]; ok {
		return fmt.Errorf("memory: insert signal %s: %w", sig.ID, domain.ErrAlreadyExists)
	}
	sig.Outcome = domain.OutcomePending
	sig.ResolvedAt = nil
	sig.Cached = false
	s.signals[sig.ID] = clone(sig)
	s.order = append(s.order, sig.ID)
	return nil
}

func (s *SignalStore) GetByID(_ context.Context, id string) (domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, ok := s.signals[id]
	if !ok {
		return domain.Signal{}, domain.ErrNotFound
	}
	return clone(sig), nil
}

// GetByAuthor returns the author's signals, most recent resolution first
// and pending signals last.
func (s *SignalStore) GetByAuthor(_ context.Context, address string) ([]domain.Signal, error) {
	out := s.filter(func(sig domain.Signal) bool { return sig.AuthorAddress == address })
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ResolvedAt, out[j].ResolvedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	return out, nil
}

func (s *SignalStore) GetByEvent(_ context.Context, eventID string) ([]domain.Signal, error) {
	return s.filter(func(sig domain.Signal) bool { return sig.EventID == eventID }), nil
}

func (s *SignalStore) GetPending(_ context.Context) ([]domain.Signal, error) {
	return s.filter(func(sig domain.Signal) bool { return sig.Outcome == domain.OutcomePending }), nil
}

// SetOutcome settles a PENDING signal under the write lock.
func (s *SignalStore) SetOutcome(_ context.Context, id string, outcome domain.Outcome, resolvedAt time.Time) (bool, error) {
	if !outcome.Terminal() {
		return false, fmt.Errorf("memory: set outcome %s: %q is not terminal", id, outcome)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.signals[id]
	if !ok || sig.Outcome != domain.OutcomePending {
		return false, nil
	}
	at := resolvedAt.UTC()
	sig.Outcome = outcome
	sig.ResolvedAt = &at
	s.signals[id] = sig
	return true, nil
}

// filter returns matching signals in insertion order.
func (s *SignalStore) filter(keep func(domain.Signal) bool) []domain.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Signal
	for _, id := range s.order {
		if sig := s.signals[id]; keep(sig) {
			out = append(out, clone(sig))
		}
	}
	return out
}

func clone(sig domain.Signal) domain.Signal {
	if sig.ResolvedAt != nil {
		at := *sig.ResolvedAt
		sig.ResolvedAt = &at
	}
	sig.KeyFactors = append([]string(nil), sig.KeyFactors...)
	sig.Citations = append([]domain.Citation(nil), sig.Citations...)
	return sig
}

var _ domain.SignalStore = (*SignalStore)(nil)
