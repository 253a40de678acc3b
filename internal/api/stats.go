package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ycotes/professor/internal/cost"
)

// DocumentCounter is the knowledge base surface the stats endpoint needs.
type DocumentCounter interface {
	Count(ctx context.Context) (int, error)
}

// statsHandler serves GET /api/v1/stats: knowledge base size and
// accumulated API spend.
type statsHandler struct {
	documents DocumentCounter
	meter     *cost.Meter
	logger    *slog.Logger
}

// statsResponse is the stats payload.
type statsResponse struct {
	Documents int           `json:"documents"`
	Spend     cost.Snapshot `json:"spend"`
}

func (h *statsHandler) stats(w http.ResponseWriter, r *http.Request) {
	count, err := h.documents.Count(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "stats_failed", "failed to read stats", h.logger)
		h.logger.Error("document count failed", "error", err)
		return
	}

	WriteJSON(w, http.StatusOK, statsResponse{
		Documents: count,
		Spend:     h.meter.Snapshot(),
	})
}
