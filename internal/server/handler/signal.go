package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cwhitfield/tickwatch/internal/domain"
	"github.com/cwhitfield/tickwatch/internal/service"
)

// SignalHandler serves the webhook ingest endpoint and signal queries.
type SignalHandler struct {
	signals   *service.SignalService
	positions *service.PositionService
	log       *slog.Logger
}

func NewSignalHandler(signals *service.SignalService, positions *service.PositionService, log *slog.Logger) *SignalHandler {
	return &SignalHandler{
		signals:   signals,
		positions: positions,
		log:       log.With("component", "signal_handler"),
	}
}

// Webhook handles POST /api/webhook/signal: persist the signal, then open a
// paper position from it.
func (h *SignalHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	sig, quantity, err := h.signals.Ingest(r.Context(), raw)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	pos, err := h.positions.OpenFromSignal(r.Context(), sig, quantity)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"signal":   sig,
		"position": pos,
	})
}

// List handles GET /api/signals.
func (h *SignalHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := domain.ListOpts{Limit: 100}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}

	signals, err := h.signals.ListRecent(r.Context(), opts)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if signals == nil {
		signals = []domain.Signal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": signals})
}
