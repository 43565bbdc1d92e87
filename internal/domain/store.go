package domain

import (
	"context"
	"time"
)

// SignalStore persists Signal records.
type SignalStore interface {
	Insert(ctx context.Context, s Signal) error
	GetByID(ctx context.Context, id string) (Signal, error)
	GetByAuthor(ctx context.Context, address string) ([]Signal, error)
	GetByEvent(ctx context.Context, eventID string) ([]Signal, error)
	GetPending(ctx context.Context) ([]Signal, error)
	// SetOutcome settles a signal. It is a no-op returning applied=false when
	// the signal is not currently PENDING.
	SetOutcome(ctx context.Context, id string, outcome Outcome, resolvedAt time.Time) (applied bool, err error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}
