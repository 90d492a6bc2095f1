package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// Pub/sub channel for per-pass unrealized snapshots.
const ChannelSnapshot = "positions.snapshot"

// PriceSource resolves current prices. Implemented by pricing.Chain.
// GetPrices omits tickers whose price could not be determined and only
// errors on context cancellation.
type PriceSource interface {
	GetPrice(ctx context.Context, ticker string) (float64, error)
	GetPrices(ctx context.Context, tickers []string) (map[string]float64, error)
}

// Scheduler drives the monitoring loop. One goroutine runs passes
// sequentially on a fixed interval, so passes never overlap; a pass that
// overruns simply delays the next tick. Start and Stop are idempotent.
type Scheduler struct {
	store     domain.PositionStore
	prices    PriceSource
	evaluator *Evaluator
	closer    *Closer
	bus       domain.SignalBus
	interval  time.Duration
	log       *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewScheduler(store domain.PositionStore, prices PriceSource, evaluator *Evaluator, closer *Closer, bus domain.SignalBus, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		prices:    prices,
		evaluator: evaluator,
		closer:    closer,
		bus:       bus,
		interval:  interval,
		log:       log.With("component", "monitor"),
	}
}

// Start launches the monitor loop. Calling Start while running is a no-op.
// The first pass runs immediately; subsequent passes follow the interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.log.Info("monitor started", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runPass(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runPass(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for any in-flight pass to finish. Calling
// Stop while stopped is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("monitor stopped")
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status reports the loop state plus the open position count.
func (s *Scheduler) Status(ctx context.Context) (domain.MonitorStatus, error) {
	count, err := s.store.CountOpen(ctx)
	if err != nil {
		return domain.MonitorStatus{}, fmt.Errorf("engine: count open positions: %w", err)
	}
	return domain.MonitorStatus{
		IsRunning:         s.IsRunning(),
		OpenPositionCount: count,
	}, nil
}

// runPass wraps RunPass in the per-pass error boundary: failures are logged
// and the loop carries on to the next tick.
func (s *Scheduler) runPass(ctx context.Context) {
	if err := s.RunPass(ctx); err != nil {
		s.log.Error("monitor pass failed", "error", err)
	}
}

// RunPass executes one monitoring pass: list open positions, group them by
// ticker, fetch one price per ticker, and evaluate every position against
// it. Tickers with no resolvable price are skipped for this pass. Exported
// so the API can trigger an on-demand pass.
func (s *Scheduler) RunPass(ctx context.Context) error {
	positions, err := s.store.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("engine: list open positions: %w", err)
	}
	if len(positions) == 0 {
		return nil
	}

	byTicker := make(map[string][]domain.Position)
	for _, pos := range positions {
		byTicker[pos.Ticker] = append(byTicker[pos.Ticker], pos)
	}
	tickers := make([]string, 0, len(byTicker))
	for ticker := range byTicker {
		tickers = append(tickers, ticker)
	}

	// Price fetches fan out; evaluation and closing stay sequential.
	prices, err := s.prices.GetPrices(ctx, tickers)
	if err != nil {
		return fmt.Errorf("engine: fetch prices: %w", err)
	}

	for ticker, group := range byTicker {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		price, ok := prices[ticker]
		if !ok {
			s.log.Warn("price unavailable, skipping ticker", "ticker", ticker, "positions", len(group))
			continue
		}

		for _, pos := range group {
			s.evaluate(ctx, pos, price)
		}
	}
	return nil
}

func (s *Scheduler) evaluate(ctx context.Context, pos domain.Position, price float64) {
	verdict := s.evaluator.Evaluate(pos, price)
	if !verdict.ShouldExit {
		s.publishSnapshot(ctx, pos, price)
		return
	}

	if _, err := s.closer.Close(ctx, pos, verdict.ExitPrice, verdict.Reason); err != nil {
		// Lost the race to a concurrent close. Benign.
		if errors.Is(err, domain.ErrPositionClosed) || errors.Is(err, domain.ErrNotFound) {
			s.log.Debug("position closed concurrently", "position_id", pos.ID)
			return
		}
		s.log.Error("close failed", "position_id", pos.ID, "ticker", pos.Ticker, "error", err)
	}
}

func (s *Scheduler) publishSnapshot(ctx context.Context, pos domain.Position, price float64) {
	if s.bus == nil {
		return
	}
	bd := ComputePnL(pos, price)
	snap := domain.PnLSnapshot{
		PositionID:           pos.ID,
		Ticker:               pos.Ticker,
		CurrentPrice:         price,
		UnrealizedPnL:        bd.PnL,
		UnrealizedPnLPercent: bd.PnLPercent,
		RMultiple:            bd.RMultiple,
		At:                   time.Now().UTC(),
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn("encode snapshot", "position_id", pos.ID, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, ChannelSnapshot, payload); err != nil {
		s.log.Warn("publish snapshot", "position_id", pos.ID, "error", err)
	}
}
