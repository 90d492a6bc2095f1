package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cwhitfield/tickwatch/internal/domain"
	"github.com/cwhitfield/tickwatch/internal/service"
)

// PositionHandler serves position queries and the manual close endpoint.
type PositionHandler struct {
	positions *service.PositionService
	log       *slog.Logger
}

func NewPositionHandler(positions *service.PositionService, log *slog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, log: log.With("component", "position_handler")}
}

// ListOpen handles GET /api/positions.
func (h *PositionHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positions.GetOpen(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

// History handles GET /api/positions/history.
func (h *PositionHandler) History(w http.ResponseWriter, r *http.Request) {
	opts := domain.ListOpts{Limit: 100}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	positions, err := h.positions.History(r.Context(), opts)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

// Get handles GET /api/positions/{id}.
func (h *PositionHandler) Get(w http.ResponseWriter, r *http.Request) {
	pos, err := h.positions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// Close handles POST /api/positions/{id}/close. The body may carry an
// explicit exit price; otherwise the current market price is used.
func (h *PositionHandler) Close(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ExitPrice *float64 `json:"exit_price"`
	}
	if r.Body != nil {
		// An empty body means close at market.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	pos, err := h.positions.ManualClose(r.Context(), r.PathValue("id"), body.ExitPrice)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}
