package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

func f64(v float64) *float64 { return &v }

func TestEvaluateSkipsUnavailablePrice(t *testing.T) {
	e := NewEvaluator(NewTracker())
	pos := longPosition()

	assert.False(t, e.Evaluate(pos, 0).ShouldExit)
	assert.False(t, e.Evaluate(pos, -3).ShouldExit)
}

func TestEvaluateStopLossLong(t *testing.T) {
	e := NewEvaluator(NewTracker())
	pos := longPosition() // stop 95

	v := e.Evaluate(pos, 94.5)
	assert.True(t, v.ShouldExit)
	assert.Equal(t, domain.ExitReasonStopLoss, v.Reason)
	assert.InDelta(t, 94.5, v.ExitPrice, 1e-9)
}

func TestEvaluateStopLossShort(t *testing.T) {
	e := NewEvaluator(NewTracker())
	pos := domain.Position{
		ID:         "pos-s",
		Side:       domain.SideShort,
		EntryPrice: 100,
		StopLoss:   102,
		Target1:    96,
	}

	v := e.Evaluate(pos, 102.5)
	assert.True(t, v.ShouldExit)
	assert.Equal(t, domain.ExitReasonStopLoss, v.Reason)
}

// Stop-loss must dominate even when a target condition also holds.
func TestEvaluateStopLossDominatesTargets(t *testing.T) {
	e := NewEvaluator(NewTracker())
	pos := domain.Position{
		ID:         "pos-adv",
		Side:       domain.SideLong,
		EntryPrice: 100,
		StopLoss:   150, // adversarial: stop above target
		Target1:    120,
		Target2:    f64(130),
	}

	v := e.Evaluate(pos, 125)
	assert.True(t, v.ShouldExit)
	assert.Equal(t, domain.ExitReasonStopLoss, v.Reason)
}

func TestEvaluateTarget1(t *testing.T) {
	e := NewEvaluator(NewTracker())
	pos := longPosition() // target1 120

	v := e.Evaluate(pos, 120)
	assert.True(t, v.ShouldExit)
	assert.Equal(t, domain.ExitReasonTarget1, v.Reason)
}

func TestEvaluateTarget1Short(t *testing.T) {
	e := NewEvaluator(NewTracker())
	pos := domain.Position{
		Side:       domain.SideShort,
		EntryPrice: 100,
		StopLoss:   102,
		Target1:    96,
	}

	v := e.Evaluate(pos, 96)
	assert.True(t, v.ShouldExit)
	assert.Equal(t, domain.ExitReasonTarget1, v.Reason)
}

func TestEvaluateTarget2OnlyWhenSet(t *testing.T) {
	e := NewEvaluator(NewTracker())

	pos := longPosition()
	pos.Target1 = 110
	pos.Target2 = f64(115)

	// Between target1 and target2: target1 wins by priority.
	v := e.Evaluate(pos, 112)
	assert.Equal(t, domain.ExitReasonTarget1, v.Reason)

	// Below target1 but target2 checked independently never fires first.
	v = e.Evaluate(pos, 109)
	assert.False(t, v.ShouldExit)
}

func TestEvaluateTrailingLast(t *testing.T) {
	tr := NewTracker()
	e := NewEvaluator(tr)
	pos := longPosition()

	// Raise the watermark to 107, then fall back through it.
	v := e.Evaluate(pos, 110)
	assert.False(t, v.ShouldExit)

	v = e.Evaluate(pos, 106)
	assert.True(t, v.ShouldExit)
	assert.Equal(t, domain.ExitReasonTrailing, v.Reason)
	assert.InDelta(t, 106.0, v.ExitPrice, 1e-9)
}

func TestEvaluateTrailingDisabled(t *testing.T) {
	tr := NewTracker()
	e := NewEvaluator(tr)
	pos := longPosition()
	pos.TrailingEnabled = false

	e.Evaluate(pos, 110)
	v := e.Evaluate(pos, 106)
	assert.False(t, v.ShouldExit)

	_, ok := tr.Watermark(pos.ID)
	assert.False(t, ok, "tracker must not be touched when trailing is disabled")
}
