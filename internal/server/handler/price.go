package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// PriceHandler serves the latest cached quotes for the dashboard ticker
// strip. It reads only the cache; it never triggers provider calls.
type PriceHandler struct {
	cache domain.PriceCache
	log   *slog.Logger
}

func NewPriceHandler(cache domain.PriceCache, log *slog.Logger) *PriceHandler {
	return &PriceHandler{cache: cache, log: log.With("component", "price_handler")}
}

// List handles GET /api/prices?tickers=AAPL,MSFT. Tickers with no cached
// quote are absent from the response.
func (h *PriceHandler) List(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("tickers")
	var tickers []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"prices": map[string]float64{}})
		return
	}

	prices, err := h.cache.GetPrices(r.Context(), tickers)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": prices})
}
