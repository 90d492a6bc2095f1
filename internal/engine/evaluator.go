package engine

import "github.com/cwhitfield/tickwatch/internal/domain"

// Verdict is the outcome of evaluating one position against one price.
type Verdict struct {
	ShouldExit bool
	Reason     domain.ExitReason
	ExitPrice  float64
}

// Evaluator decides whether a position should exit at the current price.
// It owns no state of its own; trailing decisions are delegated to the
// Tracker, which it advances as a side effect.
type Evaluator struct {
	tracker *Tracker
}

func NewEvaluator(tracker *Tracker) *Evaluator {
	return &Evaluator{tracker: tracker}
}

// Evaluate applies the exit conditions in fixed priority order. Stop-loss
// protection dominates profit-taking, and trailing is checked last. The
// exit price is always the evaluated current price; slippage is not
// modelled. A non-positive price means the quote was unavailable and the
// position is skipped.
func (e *Evaluator) Evaluate(pos domain.Position, price float64) Verdict {
	if price <= 0 {
		return Verdict{}
	}

	long := pos.Side.IsLong()

	if (long && price <= pos.StopLoss) || (!long && price >= pos.StopLoss) {
		return Verdict{ShouldExit: true, Reason: domain.ExitReasonStopLoss, ExitPrice: price}
	}
	if (long && price >= pos.Target1) || (!long && price <= pos.Target1) {
		return Verdict{ShouldExit: true, Reason: domain.ExitReasonTarget1, ExitPrice: price}
	}
	if pos.Target2 != nil {
		t2 := *pos.Target2
		if (long && price >= t2) || (!long && price <= t2) {
			return Verdict{ShouldExit: true, Reason: domain.ExitReasonTarget2, ExitPrice: price}
		}
	}
	if pos.TrailingEnabled && e.tracker.Check(pos, price) {
		return Verdict{ShouldExit: true, Reason: domain.ExitReasonTrailing, ExitPrice: price}
	}
	return Verdict{}
}
