package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"snipebot/internal/domain"
	"snipebot/internal/sniper"
)

// SniperHandler serves the trade-trigger endpoint.
type SniperHandler struct {
	orchestrator *sniper.Orchestrator
	logger       *slog.Logger
}

// NewSniperHandler creates a SniperHandler with the provided orchestrator.
func NewSniperHandler(orchestrator *sniper.Orchestrator, logger *slog.Logger) *SniperHandler {
	return &SniperHandler{
		orchestrator: orchestrator,
		logger:       logHandler(logger, "sniper"),
	}
}

// AutoTrade runs the full pipeline over a posted message: extract signals,
// resolve tickers, execute swaps. text, config and userId are all required;
// incomplete bodies are rejected before any extraction runs.
// POST /api/sniper/auto-trade
func (h *SniperHandler) AutoTrade(w http.ResponseWriter, r *http.Request) {
	var req sniper.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.orchestrator.Snipe(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "auto-trade failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
