package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// ProviderRequest is what the reasoning provider receives.
type ProviderRequest struct {
	Prompt string              `json:"prompt"`
	Mode   domain.AnalysisMode `json:"mode"`
}

// Provider is the external text-generation capability. It returns the raw
// response text; the Executor parses and normalises it.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req ProviderRequest) (string, error)
}

// Request is one execution of a built prompt.
type Request struct {
	Prompt   string
	Mode     domain.AnalysisMode
	CacheKey string
	TTL      time.Duration
}

// Result is a normalised assessment and whether it came from the cache.
type Result struct {
	Assessment domain.Assessment
	Cached     bool
}

// ExecutorConfig tunes provider access.
type ExecutorConfig struct {
	Timeout time.Duration
	// RatePerSecond and Burst throttle provider calls. Zero disables it.
	RatePerSecond float64
	Burst         int
	// BreakerFailures trips the circuit after this many consecutive
	// failures. Zero disables the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Executor calls the reasoning provider through the analysis cache.
type Executor struct {
	provider Provider
	cache    domain.AnalysisCache
	timeout  time.Duration
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewExecutor creates an Executor. cache may be nil, in which case every
// call reaches the provider.
func NewExecutor(provider Provider, cache domain.AnalysisCache, cfg ExecutorConfig, logger *slog.Logger) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	e := &Executor{
		provider: provider,
		cache:    cache,
		timeout:  cfg.Timeout,
		logger:   logger.With(slog.String("component", "analysis_executor")),
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	if cfg.BreakerFailures > 0 {
		failures := cfg.BreakerFailures
		e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "provider:" + provider.Name(),
			Timeout: cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
		})
	}
	return e
}

// Execute returns the cached assessment for req.CacheKey when present,
// otherwise calls the provider, normalises the answer and caches it. Cache
// failures are logged and never fail the call. Provider failures are
// returned wrapped in domain.ErrProvider.
func (e *Executor) Execute(ctx context.Context, req Request) (Result, error) {
	if e.cache != nil && req.CacheKey != "" {
		a, ok, err := e.cache.Get(ctx, req.CacheKey)
		switch {
		case err != nil:
			e.logger.WarnContext(ctx, "analysis cache read failed",
				slog.String("key", req.CacheKey),
				slog.String("error", fmt.Errorf("%w: %v", domain.ErrCache, err).Error()),
			)
		case ok:
			e.logger.DebugContext(ctx, "analysis cache hit", slog.String("key", req.CacheKey))
			return Result{Assessment: a, Cached: true}, nil
		}
	}

	raw, err := e.call(ctx, ProviderRequest{Prompt: req.Prompt, Mode: req.Mode})
	if err != nil {
		return Result{}, err
	}

	a, err := ParseAssessment(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", domain.ErrProvider, e.provider.Name(), err)
	}

	if e.cache != nil && req.CacheKey != "" {
		if err := e.cache.Set(ctx, req.CacheKey, a, req.TTL); err != nil {
			e.logger.WarnContext(ctx, "analysis cache write failed",
				slog.String("key", req.CacheKey),
				slog.String("error", fmt.Errorf("%w: %v", domain.ErrCache, err).Error()),
			)
		}
	}
	return Result{Assessment: a}, nil
}

func (e *Executor) call(ctx context.Context, req ProviderRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.limiter != nil {
		if err := e.limiter.Wait(callCtx); err != nil {
			return "", fmt.Errorf("%w: %s: rate limit wait: %v", domain.ErrProvider, e.provider.Name(), err)
		}
	}

	complete := func() (interface{}, error) {
		return e.provider.Complete(callCtx, req)
	}

	var (
		out interface{}
		err error
	)
	if e.breaker != nil {
		out, err = e.breaker.Execute(complete)
	} else {
		out, err = complete()
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			e.logger.WarnContext(ctx, "provider circuit open", slog.String("provider", e.provider.Name()))
		}
		return "", fmt.Errorf("%w: %s: %v", domain.ErrProvider, e.provider.Name(), err)
	}
	return out.(string), nil
}
