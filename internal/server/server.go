package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/signalforge/internal/domain"
	"github.com/alanyoungcy/signalforge/internal/server/handler"
	"github.com/alanyoungcy/signalforge/internal/server/middleware"
	"github.com/alanyoungcy/signalforge/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APIKeys guard the mutating endpoints; empty disables authentication.
	APIKeys []string
	// AnalyzePerMinute limits analyze calls per client IP; zero disables it.
	AnalyzePerMinute int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Signals *handler.SignalHandler
	Resolve *handler.ResolveHandler
	// Audit is optional; the audit trail is not served when nil.
	Audit *handler.AuditHandler
}

// Server is the HTTP + WebSocket API for signal production and reputation.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// limiter and wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	logger = logger.With(slog.String("component", "http"))

	auth := middleware.Auth(cfg.APIKeys)
	analyze := auth(http.HandlerFunc(handlers.Signals.Analyze))
	if limiter != nil && cfg.AnalyzePerMinute > 0 {
		analyze = middleware.RateLimit(limiter, "analyze", cfg.AnalyzePerMinute, time.Minute, logger)(analyze)
	}

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Analysis.
	mux.Handle("POST /api/analyze/{domain}", analyze)

	// Signals.
	mux.HandleFunc("GET /api/signals", handlers.Signals.ListSignals)
	mux.HandleFunc("GET /api/signals/{id}", handlers.Signals.GetSignal)
	mux.HandleFunc("GET /api/signals/{id}/payload", handlers.Signals.GetPayload)
	mux.HandleFunc("GET /api/signals/{id}/verify", handlers.Signals.Verify)

	// Reputation.
	mux.HandleFunc("GET /api/reputation/{address}", handlers.Signals.GetReputation)

	// Resolution triggers.
	mux.Handle("POST /api/resolve/event/{eventId}", auth(http.HandlerFunc(handlers.Resolve.ResolveEvent)))
	mux.Handle("POST /api/resolve/sweep", auth(http.HandlerFunc(handlers.Resolve.Sweep)))

	// Audit trail.
	if handlers.Audit != nil {
		mux.Handle("GET /api/audit", auth(http.HandlerFunc(handlers.Audit.ListEntries)))
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Deep analyses can take most of a minute.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		handler:    h,
		logger:     logger,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
