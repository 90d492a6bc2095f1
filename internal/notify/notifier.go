// Package notify pushes position lifecycle events to external chat
// channels. Delivery is best effort; failures are logged, never escalated.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// Sender delivers one formatted message to one destination.
type Sender interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Notifier fans events out to the configured senders, filtered by event
// name. An empty event list means notify on everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	log     *slog.Logger
}

func New(senders []Sender, events []string, log *slog.Logger) *Notifier {
	filter := make(map[string]bool, len(events))
	for _, e := range events {
		filter[e] = true
	}
	return &Notifier{
		senders: senders,
		events:  filter,
		log:     log.With("component", "notify"),
	}
}

func (n *Notifier) enabled(event string) bool {
	if len(n.events) == 0 {
		return true
	}
	return n.events[event]
}

func (n *Notifier) send(ctx context.Context, text string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, text); err != nil {
			n.log.Warn("notification failed", "sender", s.Name(), "error", err)
		}
	}
}

// PositionOpened announces a new paper position.
func (n *Notifier) PositionOpened(ctx context.Context, pos domain.Position) {
	if !n.enabled("position_opened") {
		return
	}
	n.send(ctx, fmt.Sprintf(
		"📈 Opened %s %s x%.2f @ %.2f (stop %.2f, target %.2f)",
		pos.Side, pos.Ticker, pos.Quantity, pos.EntryPrice, pos.StopLoss, pos.Target1,
	))
}

// PositionClosed announces a closed position with its outcome.
func (n *Notifier) PositionClosed(ctx context.Context, pos domain.Position) {
	if !n.enabled("position_closed") {
		return
	}
	var pnl, rMult float64
	var reason domain.ExitReason
	if pos.PnL != nil {
		pnl = *pos.PnL
	}
	if pos.RMultiple != nil {
		rMult = *pos.RMultiple
	}
	if pos.ExitReason != nil {
		reason = *pos.ExitReason
	}
	emoji := "✅"
	if pnl < 0 {
		emoji = "🔻"
	}
	n.send(ctx, fmt.Sprintf(
		"%s Closed %s %s (%s): pnl %.2f, R %.2f",
		emoji, pos.Side, pos.Ticker, reason, pnl, rMult,
	))
}
