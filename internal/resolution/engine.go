// Package resolution settles PENDING signals against market outcomes reported
// by their platforms.
package resolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// Status is the per-signal outcome of a resolution attempt.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusResolved Status = "RESOLVED"
	StatusError    Status = "ERROR"
)

// Result describes what happened to one signal.
type Result struct {
	SignalID   string         `json:"signalId"`
	Status     Status         `json:"status"`
	Outcome    domain.Outcome `json:"outcome,omitempty"`
	ResolvedAt *time.Time     `json:"resolvedAt,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Summary tallies a sweep.
type Summary struct {
	Total    int  `json:"total"`
	Resolved int  `json:"resolved"`
	Pending  int  `json:"pending"`
	Errors   int  `json:"errors"`
	Skipped  bool `json:"skipped"`
}

// Notifier receives operator alerts. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Notification event types.
const (
	EventSignalResolved = "signal_resolved"
	EventSweepError     = "sweep_error"
)

const sweepLockKey = "resolution-sweep"

// Config tunes the engine.
type Config struct {
	Parallelism int
	Interval    time.Duration
	LockTTL     time.Duration
}

// Engine resolves signals through per-platform MarketResolvers.
type Engine struct {
	store     domain.SignalStore
	resolvers map[string]domain.MarketResolver
	bus       domain.SignalBus
	lock      domain.LockManager
	notifier  Notifier
	cfg       Config
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithBus publishes a signal_resolved event for every settled signal.
func WithBus(bus domain.SignalBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLock guards Sweep with a distributed lock so only one process sweeps at
// a time.
func WithLock(lm domain.LockManager) Option {
	return func(e *Engine) { e.lock = lm }
}

// WithNotifier sends operator alerts on settlement and sweep failures.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides the time source used when a platform reports no
// settlement time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine. Resolvers are keyed by their lowercased
// Platform name.
func NewEngine(store domain.SignalStore, resolvers []domain.MarketResolver, cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	byPlatform := make(map[string]domain.MarketResolver, len(resolvers))
	for _, r := range resolvers {
		byPlatform[strings.ToLower(r.Platform())] = r
	}
	e := &Engine{
		store:     store,
		resolvers: byPlatform,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With(slog.String("component", "resolution")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ResolveSignal attempts to settle one signal. It never returns an error;
// failures are reported in the Result with StatusError.
func (e *Engine) ResolveSignal(ctx context.Context, sig domain.Signal) Result {
	res := Result{SignalID: sig.ID}

	if sig.Resolved() {
		res.Status = StatusResolved
		res.Outcome = sig.Outcome
		res.ResolvedAt = sig.ResolvedAt
		return res
	}

	resolver, ok := e.resolvers[strings.ToLower(sig.Platform)]
	if !ok {
		return e.fail(ctx, res, fmt.Errorf("resolution: unsupported platform %q: %w", sig.Platform, domain.ErrResolution))
	}

	marketID := sig.MarketID
	if marketID == "" {
		marketID = sig.EventID
	}
	rec, err := resolver.GetResolution(ctx, marketID)
	if err != nil {
		return e.fail(ctx, res, fmt.Errorf("resolution: lookup %s market %s: %w: %w", resolver.Platform(), marketID, domain.ErrResolution, err))
	}
	if !rec.Resolved {
		res.Status = StatusPending
		res.Outcome = domain.OutcomePending
		return res
	}

	outcome := domain.NormalizeOutcome(string(rec.Outcome), sig.Prediction)
	if !outcome.Terminal() {
		return e.fail(ctx, res, fmt.Errorf("resolution: signal %s has no gradable prediction: %w", sig.ID, domain.ErrResolution))
	}
	resolvedAt := rec.ResolvedAt.UTC()
	if rec.ResolvedAt.IsZero() {
		resolvedAt = e.now()
	}

	applied, err := e.store.SetOutcome(ctx, sig.ID, outcome, resolvedAt)
	if err != nil {
		return e.fail(ctx, res, fmt.Errorf("resolution: set outcome %s: %w", sig.ID, err))
	}
	if !applied {
		// Someone else settled it first; report what is stored.
		stored, err := e.store.GetByID(ctx, sig.ID)
		if err != nil {
			return e.fail(ctx, res, fmt.Errorf("resolution: reread %s: %w", sig.ID, err))
		}
		if !stored.Resolved() {
			return e.fail(ctx, res, fmt.Errorf("resolution: signal %s not updated: %w", sig.ID, domain.ErrResolution))
		}
		res.Status = StatusResolved
		res.Outcome = stored.Outcome
		res.ResolvedAt = stored.ResolvedAt
		return res
	}

	res.Status = StatusResolved
	res.Outcome = outcome
	res.ResolvedAt = &resolvedAt

	e.logger.InfoContext(ctx, "signal resolved",
		slog.String("signal_id", sig.ID),
		slog.String("platform", resolver.Platform()),
		slog.String("market_id", marketID),
		slog.String("market_outcome", string(rec.Outcome)),
		slog.String("outcome", string(outcome)),
	)
	e.publish(ctx, sig, res)
	if e.notifier != nil {
		msg := fmt.Sprintf("%s\nprediction %s, market %s: %s", sig.MarketTitle, sig.Prediction, rec.Outcome, outcome)
		if err := e.notifier.Notify(ctx, EventSignalResolved, "Signal resolved", msg); err != nil {
			e.logger.WarnContext(ctx, "resolution notify failed", slog.String("error", err.Error()))
		}
	}
	return res
}

// ResolveBatch resolves signals with bounded parallelism. Results are in the
// same order as sigs and one failure never aborts the rest.
func (e *Engine) ResolveBatch(ctx context.Context, sigs []domain.Signal) []Result {
	results := make([]Result, len(sigs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)
	for i, sig := range sigs {
		g.Go(func() error {
			results[i] = e.ResolveSignal(gctx, sig)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ResolveEvent resolves every signal recorded for eventID.
func (e *Engine) ResolveEvent(ctx context.Context, eventID string) ([]Result, error) {
	sigs, err := e.store.GetByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("resolution: signals for event %s: %w", eventID, err)
	}
	return e.ResolveBatch(ctx, sigs), nil
}

// Sweep resolves every PENDING signal. When a lock manager is configured and
// another process holds the sweep lock, the sweep is skipped.
func (e *Engine) Sweep(ctx context.Context) (Summary, error) {
	if e.lock != nil {
		unlock, err := e.lock.Acquire(ctx, sweepLockKey, e.cfg.LockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			e.logger.DebugContext(ctx, "sweep skipped, lock held elsewhere")
			return Summary{Skipped: true}, nil
		}
		if err != nil {
			return Summary{}, fmt.Errorf("resolution: acquire sweep lock: %w", err)
		}
		defer unlock()
	}

	pending, err := e.store.GetPending(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("resolution: pending signals: %w", err)
	}

	sum := Summary{Total: len(pending)}
	var failures []string
	for _, r := range e.ResolveBatch(ctx, pending) {
		switch r.Status {
		case StatusResolved:
			sum.Resolved++
		case StatusPending:
			sum.Pending++
		case StatusError:
			sum.Errors++
			failures = append(failures, r.SignalID+": "+r.Error)
		}
	}

	e.logger.InfoContext(ctx, "sweep complete",
		slog.Int("total", sum.Total),
		slog.Int("resolved", sum.Resolved),
		slog.Int("pending", sum.Pending),
		slog.Int("errors", sum.Errors),
	)
	if len(failures) > 0 && e.notifier != nil {
		msg := fmt.Sprintf("%d of %d signals failed to resolve\n%s", sum.Errors, sum.Total, strings.Join(failures, "\n"))
		if err := e.notifier.Notify(ctx, EventSweepError, "Resolution sweep errors", msg); err != nil {
			e.logger.WarnContext(ctx, "sweep notify failed", slog.String("error", err.Error()))
		}
	}
	return sum, nil
}

// Run sweeps on every tick until ctx is cancelled. Call in a goroutine.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.Sweep(ctx); err != nil {
				e.logger.ErrorContext(ctx, "resolution sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (e *Engine) fail(ctx context.Context, res Result, err error) Result {
	e.logger.WarnContext(ctx, "signal resolution failed",
		slog.String("signal_id", res.SignalID),
		slog.String("error", err.Error()),
	)
	res.Status = StatusError
	res.Error = err.Error()
	return res
}

func (e *Engine) publish(ctx context.Context, sig domain.Signal, res Result) {
	if e.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"event":       domain.ChannelSignalResolved,
		"signal_id":   sig.ID,
		"event_id":    sig.EventID,
		"author":      sig.AuthorAddress,
		"outcome":     res.Outcome,
		"resolved_at": res.ResolvedAt,
	})
	if err != nil {
		return
	}
	if err := e.bus.Publish(ctx, domain.ChannelSignalResolved, payload); err != nil {
		e.logger.WarnContext(ctx, "publish resolution failed", slog.String("error", err.Error()))
	}
}
