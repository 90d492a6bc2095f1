// Package engine implements the position exit engine: trailing-stop
// tracking, exit condition evaluation, P&L math, atomic position closing,
// and the recurring monitor that drives them.
package engine

import (
	"math"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// Breakdown holds the derived performance numbers for a position at a given
// price. The same math serves interim unrealized snapshots and final
// realized values at close.
type Breakdown struct {
	PnL        float64
	PnLPercent float64
	RMultiple  float64
}

// ComputePnL derives pnl, percent return, and R-multiple for a position at
// the given price. R-multiple expresses the return as a multiple of the
// amount originally risked per unit; it is zero when entry equals stop.
func ComputePnL(pos domain.Position, price float64) Breakdown {
	var diff float64
	if pos.Side.IsLong() {
		diff = price - pos.EntryPrice
	} else {
		diff = pos.EntryPrice - price
	}

	var pct float64
	if pos.EntryPrice != 0 {
		pct = diff / pos.EntryPrice * 100
	}

	var rMult float64
	if risk := math.Abs(pos.EntryPrice - pos.StopLoss); risk > 0 {
		rMult = diff / risk
	}

	return Breakdown{
		PnL:        diff * pos.Quantity,
		PnLPercent: pct,
		RMultiple:  rMult,
	}
}
