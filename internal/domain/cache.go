package domain

import (
	"context"
	"time"
)

// Assessment is the normalised reasoning-provider response.
type Assessment struct {
	Impact            Impact         `json:"impact"`
	OddsEfficiency    OddsEfficiency `json:"odds_efficiency"`
	Confidence        Confidence     `json:"confidence"`
	Analysis          string         `json:"analysis"`
	KeyFactors        []string       `json:"key_factors"`
	RecommendedAction string         `json:"recommended_action"`
	Citations         []Citation     `json:"citations,omitempty"`
}

// AnalysisCache stores assessments under a content key for a bounded time.
type AnalysisCache interface {
	Get(ctx context.Context, key string) (Assessment, bool, error)
	Set(ctx context.Context, key string, a Assessment, ttl time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub for signal lifecycle events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Bus channels.
const (
	ChannelSignalCreated  = "signal_created"
	ChannelSignalResolved = "signal_resolved"
)

// RateLimiter is a shared sliding-window limiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
