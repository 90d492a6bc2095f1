package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

func newTestScheduler(store *memStore, prices PriceSource, interval time.Duration) (*Scheduler, *Tracker) {
	tracker := NewTracker()
	closer := NewCloser(store, tracker, nil, nil, testLogger())
	evaluator := NewEvaluator(tracker)
	sched := NewScheduler(store, prices, evaluator, closer, nil, interval, testLogger())
	return sched, tracker
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	store := newMemStore()
	sched, _ := newTestScheduler(store, newScriptedPrices(), time.Hour)

	ctx := context.Background()
	sched.Start(ctx)
	sched.Start(ctx)
	assert.True(t, sched.IsRunning())

	sched.Stop()
	sched.Stop()
	assert.False(t, sched.IsRunning())
}

func TestSchedulerStatus(t *testing.T) {
	open := longPosition()
	closedAt := time.Now().UTC()
	closed := longPosition()
	closed.ID = "pos-closed"
	closed.Status = domain.PositionStatusClosed
	closed.ExitedAt = &closedAt

	store := newMemStore(open, closed)
	sched, _ := newTestScheduler(store, newScriptedPrices(), time.Hour)

	status, err := sched.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.IsRunning)
	assert.Equal(t, int64(1), status.OpenPositionCount)
}

func TestSchedulerGroupsByTicker(t *testing.T) {
	a := longPosition()
	a.ID = "a"
	b := longPosition()
	b.ID = "b"
	c := longPosition()
	c.ID = "c"
	c.Ticker = "MSFT"

	store := newMemStore(a, b, c)
	prices := newScriptedPrices()
	prices.push("AAPL", 101)
	prices.push("MSFT", 101)

	sched, _ := newTestScheduler(store, prices, time.Hour)
	require.NoError(t, sched.RunPass(context.Background()))

	// One fetch per ticker regardless of how many positions share it.
	assert.Equal(t, 1, prices.callCount("AAPL"))
	assert.Equal(t, 1, prices.callCount("MSFT"))
}

func TestSchedulerSkipsUnavailableTicker(t *testing.T) {
	pos := longPosition()
	store := newMemStore(pos)
	prices := newScriptedPrices() // no prices queued, every fetch fails

	sched, tracker := newTestScheduler(store, prices, time.Hour)
	require.NoError(t, sched.RunPass(context.Background()))

	stored, err := store.GetByID(context.Background(), pos.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOpen(), "unavailable price must never close a position")

	_, ok := tracker.Watermark(pos.ID)
	assert.False(t, ok, "unavailable price must not mutate trailing state")
}

func TestSchedulerClosesOnStopLoss(t *testing.T) {
	pos := longPosition() // stop 95
	store := newMemStore(pos)
	prices := newScriptedPrices()
	prices.push("AAPL", 94)

	sched, _ := newTestScheduler(store, prices, time.Hour)
	require.NoError(t, sched.RunPass(context.Background()))

	stored, err := store.GetByID(context.Background(), pos.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusClosed, stored.Status)
	assert.Equal(t, domain.ExitReasonStopLoss, *stored.ExitReason)
}

func TestSchedulerListFailureAbortsPass(t *testing.T) {
	store := newMemStore()
	store.listErr = assert.AnError

	sched, _ := newTestScheduler(store, newScriptedPrices(), time.Hour)
	err := sched.RunPass(context.Background())
	assert.Error(t, err)
}

// Walks the documented four-pass trailing scenario for a LONG AAPL position.
func TestSchedulerTrailingScenario(t *testing.T) {
	pos := domain.Position{
		ID:              "pos-aapl",
		Ticker:          "AAPL",
		Side:            domain.SideLong,
		Quantity:        10,
		EntryPrice:      175.50,
		StopLoss:        172.00,
		Target1:         180.00,
		TrailingEnabled: true,
		ATR:             2.0,
		Status:          domain.PositionStatusOpen,
		EnteredAt:       time.Now().UTC(),
	}

	store := newMemStore(pos)
	prices := newScriptedPrices()
	sched, tracker := newTestScheduler(store, prices, time.Hour)
	ctx := context.Background()

	// Pass 1: 176.00, no exit, watermark raised from 172 to 173.
	prices.push("AAPL", 176.00)
	require.NoError(t, sched.RunPass(ctx))
	stop, ok := tracker.Watermark(pos.ID)
	require.True(t, ok)
	assert.InDelta(t, 173.00, stop, 1e-9)

	// Pass 2: 179.00, watermark raised to 176.
	prices.push("AAPL", 179.00)
	require.NoError(t, sched.RunPass(ctx))
	stop, _ = tracker.Watermark(pos.ID)
	assert.InDelta(t, 176.00, stop, 1e-9)

	// Pass 3: 177.50, still above the watermark, no exit.
	prices.push("AAPL", 177.50)
	require.NoError(t, sched.RunPass(ctx))
	stored, err := store.GetByID(ctx, pos.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOpen())

	// Pass 4: 175.90 crosses back through 176, trailing exit.
	prices.push("AAPL", 175.90)
	require.NoError(t, sched.RunPass(ctx))

	stored, err = store.GetByID(ctx, pos.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusClosed, stored.Status)
	assert.Equal(t, domain.ExitReasonTrailing, *stored.ExitReason)
	assert.InDelta(t, 175.90, *stored.ExitPrice, 1e-9)
	assert.InDelta(t, 4.0, *stored.PnL, 1e-6) // (175.90-175.50)*10

	_, ok = tracker.Watermark(pos.ID)
	assert.False(t, ok, "trailing state must be gone after close")
}
