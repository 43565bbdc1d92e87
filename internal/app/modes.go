package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/signalforge/internal/domain"
	"github.com/alanyoungcy/signalforge/internal/server"
	"github.com/alanyoungcy/signalforge/internal/server/handler"
	"github.com/alanyoungcy/signalforge/internal/server/ws"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// ServerMode serves the HTTP API and the WebSocket event stream.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// SweepMode resolves pending signals immediately and then on every interval.
// With SweepOnce it prints the summary of a single sweep and returns.
func (a *App) SweepMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sweep mode",
		slog.Duration("interval", a.cfg.Resolution.Interval.Duration),
		slog.Bool("once", a.opts.SweepOnce),
	)

	summary, err := deps.Engine.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep mode: %w", err)
	}
	if a.opts.SweepOnce {
		return a.writeResult(summary)
	}
	return deps.Engine.Run(ctx)
}

// AnalyzeMode runs one analysis from a JSON context and prints the stored
// signal.
func (a *App) AnalyzeMode(ctx context.Context, deps *Dependencies) error {
	if a.opts.AnalyzeDomain == "" || a.opts.AnalyzeInput == nil {
		return errors.New("analyze mode: a domain and an input context are required")
	}

	var c domain.Context
	if err := json.NewDecoder(a.opts.AnalyzeInput).Decode(&c); err != nil {
		return fmt.Errorf("analyze mode: decode context: %w", err)
	}
	a.logger.InfoContext(ctx, "starting analyze mode",
		slog.String("domain", a.opts.AnalyzeDomain),
		slog.String("event_id", c.EventID),
	)

	sig, err := deps.Signals.Analyze(ctx, a.opts.AnalyzeDomain, c)
	if err != nil {
		return fmt.Errorf("analyze mode: %w", err)
	}
	return a.writeResult(sig)
}

// FullMode runs the HTTP API together with the periodic resolution sweep.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	g.Go(func() error {
		return deps.Engine.Run(ctx)
	})
	return g.Wait()
}

// startHTTPServer adds the WebSocket hub, the HTTP server and its shutdown
// watcher to g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:    a.cfg.Mode,
		Domains: deps.Registry.Names(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:             a.cfg.Server.Port,
		CORSOrigins:      a.cfg.Server.CORSOrigins,
		APIKeys:          a.cfg.Server.APIKeys,
		AnalyzePerMinute: a.cfg.Server.AnalyzePerMinute,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(a.cfg.Mode, deps.Registry.Names, deps.Checks, a.logger),
		Signals: handler.NewSignalHandler(deps.Signals, a.logger),
		Resolve: handler.NewResolveHandler(deps.Engine, a.logger),
		Audit:   handler.NewAuditHandler(deps.AuditStore, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	if len(a.cfg.Server.APIKeys) == 0 {
		a.logger.WarnContext(ctx, "server.api_keys is empty, mutating endpoints are unauthenticated")
	}

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		return ctx.Err()
	})
}

// writeResult prints v as indented JSON to the configured output.
func (a *App) writeResult(v any) error {
	enc := json.NewEncoder(a.opts.Output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("app: write result: %w", err)
	}
	return nil
}
