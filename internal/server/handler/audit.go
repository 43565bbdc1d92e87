package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditLog reads the append-only audit trail.
type AuditLog interface {
	List(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// AuditHandler exposes recent signal lifecycle events.
type AuditHandler struct {
	log    AuditLog
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(log AuditLog, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		log:    log,
		logger: logger.With(slog.String("handler", "audit")),
	}
}

type auditResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
	Count   int                 `json:"count"`
}

// ListEntries returns the newest audit entries.
// GET /api/audit?limit=N (default 50, at most 500)
func (h *AuditHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	entries, err := h.log.List(r.Context(), limit)
	if err != nil {
		fail(w, r, h.logger, "failed to list audit entries", err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, auditResponse{Entries: entries, Count: len(entries)})
}
