package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/signalforge/internal/resolution"
)

// Resolver defines the resolution engine operations exposed over HTTP.
type Resolver interface {
	ResolveEvent(ctx context.Context, eventID string) ([]resolution.Result, error)
	Sweep(ctx context.Context) (resolution.Summary, error)
}

// ResolveHandler serves manual resolution triggers.
type ResolveHandler struct {
	engine Resolver
	logger *slog.Logger
}

// NewResolveHandler creates a ResolveHandler.
func NewResolveHandler(engine Resolver, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		engine: engine,
		logger: logger.With(slog.String("handler", "resolve")),
	}
}

type resolveEventResponse struct {
	EventID string              `json:"eventId"`
	Results []resolution.Result `json:"results"`
}

// ResolveEvent settles every signal on one event.
// POST /api/resolve/event/{eventId}
func (h *ResolveHandler) ResolveEvent(w http.ResponseWriter, r *http.Request) {
	eventID := pathParam(r, "eventId")
	results, err := h.engine.ResolveEvent(r.Context(), eventID)
	if err != nil {
		fail(w, r, h.logger, "failed to resolve event", err)
		return
	}
	if results == nil {
		results = []resolution.Result{}
	}
	writeJSON(w, http.StatusOK, resolveEventResponse{EventID: eventID, Results: results})
}

// Sweep settles every PENDING signal. A sweep already running elsewhere is
// reported with skipped=true.
// POST /api/resolve/sweep
func (h *ResolveHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "handler: sweep requested")
	summary, err := h.engine.Sweep(r.Context())
	if err != nil {
		fail(w, r, h.logger, "sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
