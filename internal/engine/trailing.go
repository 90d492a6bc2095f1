package engine

import (
	"sync"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// ATRMultiplier sizes the trailing-stop offset in units of the position's
// average true range. Policy constant.
const ATRMultiplier = 1.5

// Tracker maintains per-position trailing-stop watermarks. The watermark
// only ever moves in the trade's favor: up for LONG, down for SHORT. State
// is ephemeral; if lost it is rebuilt from the position's static stop on the
// next check, temporarily reverting protection to the static level.
type Tracker struct {
	mu    sync.Mutex
	stops map[string]float64
}

func NewTracker() *Tracker {
	return &Tracker{stops: make(map[string]float64)}
}

// Check advances the position's watermark for the given price and reports
// whether price has crossed back through it. A non-positive price leaves
// state untouched and never signals an exit.
func (t *Tracker) Check(pos domain.Position, price float64) bool {
	if price <= 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stop, ok := t.stops[pos.ID]
	if !ok {
		stop = pos.StopLoss
	}

	offset := ATRMultiplier * pos.ATR
	if pos.Side.IsLong() {
		if candidate := price - offset; candidate > stop {
			stop = candidate
		}
		t.stops[pos.ID] = stop
		return price <= stop
	}

	if candidate := price + offset; candidate < stop {
		stop = candidate
	}
	t.stops[pos.ID] = stop
	return price >= stop
}

// Watermark returns the stored trailing stop for a position, if any.
func (t *Tracker) Watermark(positionID string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	stop, ok := t.stops[positionID]
	return stop, ok
}

// Remove drops the position's trailing state. Called on every close path so
// a reused identifier never inherits a stale watermark.
func (t *Tracker) Remove(positionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.stops, positionID)
}

// Len reports how many positions currently have trailing state.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stops)
}
