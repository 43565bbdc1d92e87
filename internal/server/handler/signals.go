package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/signalforge/internal/domain"
	"github.com/alanyoungcy/signalforge/internal/publish"
	"github.com/alanyoungcy/signalforge/internal/service"
)

// SignalService defines the methods that the signal handler requires from the
// service layer.
type SignalService interface {
	Domains() []string
	Analyze(ctx context.Context, domainName string, c domain.Context) (domain.Signal, error)
	Get(ctx context.Context, id string) (domain.Signal, error)
	List(ctx context.Context, f service.ListFilter) ([]domain.Signal, error)
	Payload(ctx context.Context, id string) (publish.Envelope, error)
	Verify(ctx context.Context, id string) (service.Verification, error)
	Reputation(ctx context.Context, address string) (domain.ReputationStats, error)
}

// SignalHandler serves analysis, signal and reputation endpoints.
type SignalHandler struct {
	signals SignalService
	logger  *slog.Logger
}

// NewSignalHandler creates a SignalHandler with the given service and logger.
func NewSignalHandler(signals SignalService, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{
		signals: signals,
		logger:  logger.With(slog.String("handler", "signals")),
	}
}

// Analyze runs one analysis and returns the stored signal.
// POST /api/analyze/{domain}
func (h *SignalHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "domain")

	var c domain.Context
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sig, err := h.signals.Analyze(r.Context(), name, c)
	if err != nil {
		fail(w, r, h.logger, "analysis failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, sig)
}

type listSignalsResponse struct {
	Signals []domain.Signal `json:"signals"`
	Count   int             `json:"count"`
}

// ListSignals returns signals by author, event or pending state.
// GET /api/signals?author=0x..|event=..|pending=true
func (h *SignalHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := service.ListFilter{
		Author:  q.Get("author"),
		EventID: q.Get("event"),
	}
	if v := q.Get("pending"); v != "" {
		pending, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "pending must be a boolean")
			return
		}
		f.Pending = pending
	}

	sigs, err := h.signals.List(r.Context(), f)
	if errors.Is(err, service.ErrFilterRequired) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		fail(w, r, h.logger, "failed to list signals", err)
		return
	}
	writeJSON(w, http.StatusOK, listSignalsResponse{Signals: sigs, Count: len(sigs)})
}

// GetSignal returns one signal.
// GET /api/signals/{id}
func (h *SignalHandler) GetSignal(w http.ResponseWriter, r *http.Request) {
	sig, err := h.signals.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, "failed to get signal", err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

// GetPayload returns the on-chain publish envelope for a signal.
// GET /api/signals/{id}/payload
func (h *SignalHandler) GetPayload(w http.ResponseWriter, r *http.Request) {
	env, err := h.signals.Payload(r.Context(), pathParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, "failed to build payload", err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// Verify recomputes a signal's snapshot hash from the archive.
// GET /api/signals/{id}/verify
func (h *SignalHandler) Verify(w http.ResponseWriter, r *http.Request) {
	v, err := h.signals.Verify(r.Context(), pathParam(r, "id"))
	if err != nil {
		fail(w, r, h.logger, "failed to verify signal", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetReputation returns an author's reputation.
// GET /api/reputation/{address}
func (h *SignalHandler) GetReputation(w http.ResponseWriter, r *http.Request) {
	stats, err := h.signals.Reputation(r.Context(), pathParam(r, "address"))
	if err != nil {
		fail(w, r, h.logger, "failed to compute reputation", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
