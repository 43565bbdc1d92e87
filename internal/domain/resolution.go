package domain

import (
	"context"
	"time"
)

// ResolutionRecord is the settlement state of a market as reported by its
// platform.
type ResolutionRecord struct {
	MarketID   string
	Platform   string
	Resolved   bool
	Outcome    Side
	ResolvedAt time.Time
}

// MarketResolver looks up a market's settlement on one platform.
type MarketResolver interface {
	Platform() string
	GetResolution(ctx context.Context, marketID string) (ResolutionRecord, error)
}
