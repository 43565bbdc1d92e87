package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds each readiness check.
const checkTimeout = 2 * time.Second

// Check reports whether one backend is reachable.
type Check func(ctx context.Context) error

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	mode    string
	domains func() []string
	checks  map[string]Check
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. domains reports the registered
// analysis domains and may be nil. checks are keyed by backend name
// (postgres, redis, s3); in-memory backends need none.
func NewHealthHandler(mode string, domains func() []string, checks map[string]Check, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		mode:    mode,
		domains: domains,
		checks:  checks,
		started: time.Now(),
		logger:  logger.With(slog.String("component", "health")),
	}
}

// HealthCheck reports liveness plus the readiness of every configured
// backend. Any failing backend turns the response into a 503 "degraded".
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	domains := []string{}
	if h.domains != nil {
		domains = h.domains()
	}

	checks, healthy := h.runChecks(r.Context())
	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"mode":           h.mode,
		"domains":        domains,
		"checks":         checks,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) runChecks(ctx context.Context) (map[string]string, bool) {
	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.checks))
		healthy = true
		g       errgroup.Group
	)
	for name, check := range h.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			err := check(cctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				results[name] = err.Error()
				h.logger.WarnContext(ctx, "readiness check failed",
					slog.String("backend", name),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[name] = "ok"
			return nil
		})
	}
	_ = g.Wait()
	return results, healthy
}
