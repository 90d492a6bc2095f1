package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwhitfield/tickwatch/internal/domain"
	"github.com/cwhitfield/tickwatch/internal/engine"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memPositions struct {
	mu        sync.Mutex
	positions map[string]domain.Position
}

var _ domain.PositionStore = (*memPositions)(nil)

func newMemPositions() *memPositions {
	return &memPositions{positions: make(map[string]domain.Position)}
}

func (s *memPositions) Create(ctx context.Context, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[pos.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.positions[pos.ID] = pos
	return nil
}

func (s *memPositions) GetByID(ctx context.Context, id string) (domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (s *memPositions) ListOpen(ctx context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, p := range s.positions {
		if p.IsOpen() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memPositions) CountOpen(ctx context.Context) (int64, error) {
	open, _ := s.ListOpen(ctx)
	return int64(len(open)), nil
}

func (s *memPositions) CloseIfOpen(ctx context.Context, id string, close domain.PositionClose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !pos.IsOpen() {
		return domain.ErrPositionClosed
	}
	pos.Status = domain.PositionStatusClosed
	pos.ExitedAt = &close.ExitedAt
	pos.ExitPrice = &close.ExitPrice
	pos.ExitReason = &close.ExitReason
	pos.PnL = &close.PnL
	s.positions[id] = pos
	return nil
}

func (s *memPositions) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	return nil, nil
}

func (s *memPositions) ListClosedBefore(ctx context.Context, before time.Time) ([]domain.Position, error) {
	return nil, nil
}

type memSignals struct {
	mu      sync.Mutex
	signals map[string]domain.Signal
}

var _ domain.SignalStore = (*memSignals)(nil)

func newMemSignals() *memSignals {
	return &memSignals{signals: make(map[string]domain.Signal)}
}

func (s *memSignals) Create(ctx context.Context, sig domain.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[sig.ID] = sig
	return nil
}

func (s *memSignals) GetByID(ctx context.Context, id string) (domain.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[id]
	if !ok {
		return domain.Signal{}, domain.ErrNotFound
	}
	return sig, nil
}

func (s *memSignals) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Signal, error) {
	return nil, nil
}

type fixedPrice struct {
	price float64
	err   error
}

func (f fixedPrice) GetPrice(ctx context.Context, ticker string) (float64, error) {
	return f.price, f.err
}

func (f fixedPrice) GetPrices(ctx context.Context, tickers []string) (map[string]float64, error) {
	out := make(map[string]float64, len(tickers))
	if f.err == nil {
		for _, t := range tickers {
			out[t] = f.price
		}
	}
	return out, nil
}

func newTestServices(positions *memPositions, signals *memSignals, price fixedPrice) (*PositionService, *SignalService) {
	tracker := engine.NewTracker()
	closer := engine.NewCloser(positions, tracker, nil, nil, testLogger())
	ps := NewPositionService(positions, closer, price, nil, nil, testLogger())
	ss := NewSignalService(signals, nil, testLogger())
	return ps, ss
}

func TestIngestValidSignal(t *testing.T) {
	_, ss := newTestServices(newMemPositions(), newMemSignals(), fixedPrice{})

	raw := []byte(`{"ticker":"aapl","action":"BUY","price":175.5,"atr":2.0,"stop_loss":172.0,"target_1":180.0,"quantity":10}`)
	sig, qty, err := ss.Ingest(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", sig.Ticker)
	assert.Equal(t, "buy", sig.Action)
	assert.InDelta(t, 10.0, qty, 1e-9)
	assert.NotEmpty(t, sig.ID)
}

func TestIngestRejectsBadPayloads(t *testing.T) {
	_, ss := newTestServices(newMemPositions(), newMemSignals(), fixedPrice{})
	ctx := context.Background()

	cases := map[string]string{
		"not json":       `{{`,
		"missing ticker": `{"action":"buy","price":10,"stop_loss":9,"target_1":11}`,
		"bad action":     `{"ticker":"AAPL","action":"hold","price":10,"stop_loss":9,"target_1":11}`,
		"zero price":     `{"ticker":"AAPL","action":"buy","price":0,"stop_loss":9,"target_1":11}`,
		"no stop":        `{"ticker":"AAPL","action":"buy","price":10,"target_1":11}`,
	}
	for name, raw := range cases {
		_, _, err := ss.Ingest(ctx, []byte(raw))
		assert.ErrorIs(t, err, domain.ErrInvalidSignal, name)
	}
}

func TestOpenFromSignal(t *testing.T) {
	positions := newMemPositions()
	ps, _ := newTestServices(positions, newMemSignals(), fixedPrice{})

	t2 := 185.0
	sig := domain.Signal{
		ID:       "sig-1",
		Ticker:   "AAPL",
		Action:   "buy",
		Price:    175.5,
		ATR:      2.0,
		StopLoss: 172.0,
		Target1:  180.0,
		Target2:  &t2,
	}

	pos, err := ps.OpenFromSignal(context.Background(), sig, 10)
	require.NoError(t, err)

	assert.Equal(t, domain.SideLong, pos.Side)
	assert.Equal(t, domain.PositionStatusOpen, pos.Status)
	assert.True(t, pos.TrailingEnabled, "positive ATR enables trailing")
	assert.InDelta(t, 2.0, pos.ATR, 1e-9)
	require.NotNil(t, pos.Target2)
	assert.InDelta(t, 185.0, *pos.Target2, 1e-9)

	stored, err := positions.GetByID(context.Background(), pos.ID)
	require.NoError(t, err)
	assert.Equal(t, "sig-1", stored.SignalID)
}

func TestOpenFromSignalShort(t *testing.T) {
	ps, _ := newTestServices(newMemPositions(), newMemSignals(), fixedPrice{})

	sig := domain.Signal{ID: "sig-2", Ticker: "TSLA", Action: "sell", Price: 200, StopLoss: 204, Target1: 192}
	pos, err := ps.OpenFromSignal(context.Background(), sig, 0)
	require.NoError(t, err)

	assert.Equal(t, domain.SideShort, pos.Side)
	assert.InDelta(t, 1.0, pos.Quantity, 1e-9, "quantity defaults to 1")
	assert.False(t, pos.TrailingEnabled, "zero ATR disables trailing")
}

func TestManualCloseWithExplicitPrice(t *testing.T) {
	positions := newMemPositions()
	ps, _ := newTestServices(positions, newMemSignals(), fixedPrice{err: domain.ErrPriceUnavailable})

	sig := domain.Signal{ID: "sig-3", Ticker: "AAPL", Action: "buy", Price: 100, StopLoss: 95, Target1: 120}
	pos, err := ps.OpenFromSignal(context.Background(), sig, 1)
	require.NoError(t, err)

	price := 105.0
	closed, err := ps.ManualClose(context.Background(), pos.ID, &price)
	require.NoError(t, err)

	assert.Equal(t, domain.ExitReasonManual, *closed.ExitReason)
	assert.InDelta(t, 105.0, *closed.ExitPrice, 1e-9)
}

func TestManualCloseFetchesMarketPrice(t *testing.T) {
	positions := newMemPositions()
	ps, _ := newTestServices(positions, newMemSignals(), fixedPrice{price: 103.0})

	sig := domain.Signal{ID: "sig-4", Ticker: "AAPL", Action: "buy", Price: 100, StopLoss: 95, Target1: 120}
	pos, err := ps.OpenFromSignal(context.Background(), sig, 1)
	require.NoError(t, err)

	closed, err := ps.ManualClose(context.Background(), pos.ID, nil)
	require.NoError(t, err)
	assert.InDelta(t, 103.0, *closed.ExitPrice, 1e-9)
}

func TestManualCloseErrors(t *testing.T) {
	positions := newMemPositions()
	ps, _ := newTestServices(positions, newMemSignals(), fixedPrice{err: domain.ErrPriceUnavailable})
	ctx := context.Background()

	_, err := ps.ManualClose(ctx, "missing", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sig := domain.Signal{ID: "sig-5", Ticker: "AAPL", Action: "buy", Price: 100, StopLoss: 95, Target1: 120}
	pos, err := ps.OpenFromSignal(ctx, sig, 1)
	require.NoError(t, err)

	// No explicit price and no resolvable market price.
	_, err = ps.ManualClose(ctx, pos.ID, nil)
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)

	price := 101.0
	_, err = ps.ManualClose(ctx, pos.ID, &price)
	require.NoError(t, err)

	_, err = ps.ManualClose(ctx, pos.ID, &price)
	assert.ErrorIs(t, err, domain.ErrPositionClosed)
}
