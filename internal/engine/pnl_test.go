package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

func TestComputePnLLong(t *testing.T) {
	pos := domain.Position{
		Side:       domain.SideLong,
		Quantity:   10,
		EntryPrice: 100,
		StopLoss:   98,
		Target1:    104,
	}

	bd := ComputePnL(pos, 104)
	assert.InDelta(t, 40.0, bd.PnL, 1e-9)
	assert.InDelta(t, 4.0, bd.PnLPercent, 1e-9)
	assert.InDelta(t, 2.0, bd.RMultiple, 1e-9)
}

func TestComputePnLShort(t *testing.T) {
	pos := domain.Position{
		Side:       domain.SideShort,
		Quantity:   10,
		EntryPrice: 100,
		StopLoss:   102,
		Target1:    96,
	}

	bd := ComputePnL(pos, 96)
	assert.InDelta(t, 40.0, bd.PnL, 1e-9)
	assert.InDelta(t, 4.0, bd.PnLPercent, 1e-9)
	assert.InDelta(t, 2.0, bd.RMultiple, 1e-9)
}

func TestComputePnLLoss(t *testing.T) {
	pos := domain.Position{
		Side:       domain.SideLong,
		Quantity:   5,
		EntryPrice: 50,
		StopLoss:   48,
	}

	bd := ComputePnL(pos, 48)
	assert.InDelta(t, -10.0, bd.PnL, 1e-9)
	assert.InDelta(t, -4.0, bd.PnLPercent, 1e-9)
	assert.InDelta(t, -1.0, bd.RMultiple, 1e-9)
}

func TestComputePnLZeroRisk(t *testing.T) {
	pos := domain.Position{
		Side:       domain.SideLong,
		Quantity:   1,
		EntryPrice: 100,
		StopLoss:   100,
	}

	bd := ComputePnL(pos, 110)
	assert.InDelta(t, 10.0, bd.PnL, 1e-9)
	assert.Zero(t, bd.RMultiple)
}
