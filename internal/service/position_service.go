package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cwhitfield/tickwatch/internal/domain"
	"github.com/cwhitfield/tickwatch/internal/engine"
)

// Pub/sub channel for newly opened positions.
const ChannelPositionOpened = "positions.opened"

// PositionService exposes the position lifecycle to the API layer: opening
// paper positions from signals, manual closes, and read queries.
type PositionService struct {
	positions domain.PositionStore
	closer    *engine.Closer
	prices    engine.PriceSource
	bus       domain.SignalBus
	audit     domain.AuditStore
	log       *slog.Logger
}

func NewPositionService(positions domain.PositionStore, closer *engine.Closer, prices engine.PriceSource, bus domain.SignalBus, audit domain.AuditStore, log *slog.Logger) *PositionService {
	return &PositionService{
		positions: positions,
		closer:    closer,
		prices:    prices,
		bus:       bus,
		audit:     audit,
		log:       log.With("component", "position_service"),
	}
}

// OpenFromSignal creates an open paper position from an ingested signal.
// The signal's risk levels and ATR are copied onto the position so the exit
// engine never needs to re-read the signal.
func (s *PositionService) OpenFromSignal(ctx context.Context, sig domain.Signal, quantity float64) (domain.Position, error) {
	if quantity <= 0 {
		quantity = 1
	}

	side := domain.SideLong
	if sig.Action == "sell" {
		side = domain.SideShort
	}

	pos := domain.Position{
		ID:              uuid.NewString(),
		SignalID:        sig.ID,
		Ticker:          sig.Ticker,
		Side:            side,
		Quantity:        quantity,
		EntryPrice:      sig.Price,
		StopLoss:        sig.StopLoss,
		Target1:         sig.Target1,
		Target2:         sig.Target2,
		TrailingEnabled: sig.ATR > 0,
		ATR:             sig.ATR,
		Status:          domain.PositionStatusOpen,
		EnteredAt:       time.Now().UTC(),
	}

	if err := s.positions.Create(ctx, pos); err != nil {
		return domain.Position{}, fmt.Errorf("service: open position: %w", err)
	}

	s.log.Info("position opened",
		"position_id", pos.ID,
		"ticker", pos.Ticker,
		"side", pos.Side,
		"entry_price", pos.EntryPrice,
		"quantity", pos.Quantity,
	)

	if s.audit != nil {
		if err := s.audit.Log(ctx, "position_opened", map[string]any{
			"position_id": pos.ID,
			"signal_id":   pos.SignalID,
			"ticker":      pos.Ticker,
			"side":        string(pos.Side),
			"entry_price": pos.EntryPrice,
		}); err != nil {
			s.log.Warn("audit log failed", "position_id", pos.ID, "error", err)
		}
	}

	if s.bus != nil {
		if payload, err := json.Marshal(pos); err == nil {
			if err := s.bus.Publish(ctx, ChannelPositionOpened, payload); err != nil {
				s.log.Warn("publish opened position", "position_id", pos.ID, "error", err)
			}
		}
	}
	return pos, nil
}

// ManualClose closes a position at the supplied price, or at the current
// market price when none is given. Unknown or already-closed positions and
// an unresolvable price surface as errors to the caller; this is the one
// close path whose failures are user-visible.
func (s *PositionService) ManualClose(ctx context.Context, id string, exitPrice *float64) (domain.Position, error) {
	pos, err := s.positions.GetByID(ctx, id)
	if err != nil {
		return domain.Position{}, err
	}
	if !pos.IsOpen() {
		return domain.Position{}, domain.ErrPositionClosed
	}

	var price float64
	if exitPrice != nil && *exitPrice > 0 {
		price = *exitPrice
	} else {
		price, err = s.prices.GetPrice(ctx, pos.Ticker)
		if err != nil {
			return domain.Position{}, fmt.Errorf("service: resolve exit price for %s: %w", pos.Ticker, err)
		}
	}

	return s.closer.Close(ctx, pos, price, domain.ExitReasonManual)
}

// Get returns a position by id.
func (s *PositionService) Get(ctx context.Context, id string) (domain.Position, error) {
	return s.positions.GetByID(ctx, id)
}

// GetOpen lists all open positions.
func (s *PositionService) GetOpen(ctx context.Context) ([]domain.Position, error) {
	return s.positions.ListOpen(ctx)
}

// History lists closed positions, newest first.
func (s *PositionService) History(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	return s.positions.ListHistory(ctx, opts)
}
