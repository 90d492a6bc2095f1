package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory domain.PositionStore with the same conditional
// close semantics as the Postgres implementation.
type memStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	listErr   error
	closes    int
}

var _ domain.PositionStore = (*memStore)(nil)

func newMemStore(positions ...domain.Position) *memStore {
	s := &memStore{positions: make(map[string]domain.Position)}
	for _, p := range positions {
		s.positions[p.ID] = p
	}
	return s
}

func (s *memStore) Create(ctx context.Context, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[pos.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.positions[pos.ID] = pos
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (s *memStore) ListOpen(ctx context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Position
	for _, p := range s.positions {
		if p.IsOpen() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) CountOpen(ctx context.Context) (int64, error) {
	open, err := s.ListOpen(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(open)), nil
}

func (s *memStore) CloseIfOpen(ctx context.Context, id string, close domain.PositionClose) error {
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
	pos.ExitValue = &close.ExitValue
	pos.ExitReason = &close.ExitReason
	pos.PnL = &close.PnL
	pos.PnLPercent = &close.PnLPercent
	pos.RMultiple = &close.RMultiple
	pos.HoldingPeriodMinutes = &close.HoldingPeriodMinutes
	s.positions[id] = pos
	s.closes++
	return nil
}

func (s *memStore) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, p := range s.positions {
		if !p.IsOpen() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) ListClosedBefore(ctx context.Context, before time.Time) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, p := range s.positions {
		if !p.IsOpen() && p.ExitedAt != nil && p.ExitedAt.Before(before) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// scriptedPrices returns queued prices per ticker, one per call. A nil queue
// or exhausted queue yields domain.ErrPriceUnavailable.
type scriptedPrices struct {
	mu     sync.Mutex
	queues map[string][]float64
	calls  map[string]int
}

var _ PriceSource = (*scriptedPrices)(nil)

func newScriptedPrices() *scriptedPrices {
	return &scriptedPrices{
		queues: make(map[string][]float64),
		calls:  make(map[string]int),
	}
}

func (p *scriptedPrices) push(ticker string, prices ...float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queues[ticker] = append(p.queues[ticker], prices...)
}

func (p *scriptedPrices) GetPrice(ctx context.Context, ticker string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[ticker]++
	q := p.queues[ticker]
	if len(q) == 0 {
		return 0, domain.ErrPriceUnavailable
	}
	price := q[0]
	p.queues[ticker] = q[1:]
	return price, nil
}

func (p *scriptedPrices) GetPrices(ctx context.Context, tickers []string) (map[string]float64, error) {
	out := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		price, err := p.GetPrice(ctx, t)
		if err != nil {
			continue
		}
		out[t] = price
	}
	return out, nil
}

func (p *scriptedPrices) callCount(ticker string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[ticker]
}
