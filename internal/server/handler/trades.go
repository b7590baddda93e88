package handler

import (
	"context"
	"log/slog"
	"net/http"

	"snipebot/internal/domain"
)

// TradeLister reads the executed-trade audit log.
type TradeLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.TradeRecord, error)
}

// TradesHandler serves the trade history endpoints.
type TradesHandler struct {
	trades TradeLister
	logger *slog.Logger
}

// NewTradesHandler creates a TradesHandler. trades may be nil when the
// database is disabled; the endpoint then reports 503.
func NewTradesHandler(trades TradeLister, logger *slog.Logger) *TradesHandler {
	return &TradesHandler{
		trades: trades,
		logger: logHandler(logger, "trades"),
	}
}

// ListTrades returns a user's executed trades, newest first.
// GET /api/trades?user_id=...&limit=...
func (h *TradesHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	if h.trades == nil {
		writeError(w, http.StatusServiceUnavailable, "trade history requires the database")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	recs, err := h.trades.ListByUser(r.Context(), userID, parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if recs == nil {
		recs = []domain.TradeRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades": recs,
		"count":  len(recs),
	})
}
