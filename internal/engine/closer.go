package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// Pub/sub channels and stream names for closure events.
const (
	ChannelPositionClosed = "positions.closed"
	StreamPositionClosed  = "stream:positions.closed"
)

// Closer commits the open to closed transition for a position. The store
// update is conditional on the position still being open, so concurrent
// monitor passes and manual closes resolve to exactly one winner; the loser
// observes domain.ErrPositionClosed.
type Closer struct {
	store   domain.PositionStore
	tracker *Tracker
	bus     domain.SignalBus
	audit   domain.AuditStore
	log     *slog.Logger
	now     func() time.Time
}

func NewCloser(store domain.PositionStore, tracker *Tracker, bus domain.SignalBus, audit domain.AuditStore, log *slog.Logger) *Closer {
	return &Closer{
		store:   store,
		tracker: tracker,
		bus:     bus,
		audit:   audit,
		log:     log.With("component", "closer"),
		now:     time.Now,
	}
}

// Close persists the position's terminal state and releases its trailing
// tracking state. On success it returns the position with close fields
// populated. Event publication and audit logging are best effort; only the
// store update decides success.
func (c *Closer) Close(ctx context.Context, pos domain.Position, exitPrice float64, reason domain.ExitReason) (domain.Position, error) {
	now := c.now().UTC()
	bd := ComputePnL(pos, exitPrice)

	close := domain.PositionClose{
		ExitedAt:             now,
		ExitPrice:            exitPrice,
		ExitValue:            exitPrice * pos.Quantity,
		ExitReason:           reason,
		PnL:                  bd.PnL,
		PnLPercent:           bd.PnLPercent,
		RMultiple:            bd.RMultiple,
		HoldingPeriodMinutes: int64(now.Sub(pos.EnteredAt).Minutes()),
	}

	if err := c.store.CloseIfOpen(ctx, pos.ID, close); err != nil {
		// A concurrent close already won; drop our trailing state too so
		// nothing leaks, then report the conflict to the caller.
		if errors.Is(err, domain.ErrPositionClosed) {
			c.tracker.Remove(pos.ID)
		}
		return domain.Position{}, err
	}

	c.tracker.Remove(pos.ID)

	pos.Status = domain.PositionStatusClosed
	pos.ExitedAt = &close.ExitedAt
	pos.ExitPrice = &close.ExitPrice
	pos.ExitValue = &close.ExitValue
	pos.ExitReason = &close.ExitReason
	pos.PnL = &close.PnL
	pos.PnLPercent = &close.PnLPercent
	pos.RMultiple = &close.RMultiple
	pos.HoldingPeriodMinutes = &close.HoldingPeriodMinutes

	c.log.Info("position closed",
		"position_id", pos.ID,
		"ticker", pos.Ticker,
		"reason", reason,
		"exit_price", exitPrice,
		"pnl", bd.PnL,
		"r_multiple", bd.RMultiple,
	)

	if c.audit != nil {
		if err := c.audit.Log(ctx, "position_closed", map[string]any{
			"position_id": pos.ID,
			"ticker":      pos.Ticker,
			"reason":      string(reason),
			"exit_price":  exitPrice,
			"pnl":         bd.PnL,
			"r_multiple":  bd.RMultiple,
		}); err != nil {
			c.log.Warn("audit log failed", "position_id", pos.ID, "error", err)
		}
	}

	c.publish(ctx, pos)
	return pos, nil
}

func (c *Closer) publish(ctx context.Context, pos domain.Position) {
	if c.bus == nil {
		return
	}
	payload, err := json.Marshal(pos)
	if err != nil {
		c.log.Warn("encode closed position", "position_id", pos.ID, "error", err)
		return
	}
	if err := c.bus.Publish(ctx, ChannelPositionClosed, payload); err != nil {
		c.log.Warn("publish closed position", "position_id", pos.ID, "error", err)
	}
	if err := c.bus.StreamAppend(ctx, StreamPositionClosed, payload); err != nil {
		c.log.Warn("append closed position stream", "position_id", pos.ID, "error", err)
	}
}
