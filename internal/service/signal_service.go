package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// Pub/sub channel and stream for ingested signals.
const (
	ChannelSignalReceived = "signals.received"
	StreamSignalReceived  = "stream:signals.received"
)

// WebhookPayload is the JSON body accepted on the signal webhook.
type WebhookPayload struct {
	Ticker   string   `json:"ticker"`
	Action   string   `json:"action"`
	Price    float64  `json:"price"`
	ATR      float64  `json:"atr"`
	StopLoss float64  `json:"stop_loss"`
	Target1  float64  `json:"target_1"`
	Target2  *float64 `json:"target_2"`
	Quantity float64  `json:"quantity"`
	Source   string   `json:"source"`
}

// SignalService validates and persists incoming webhook signals.
type SignalService struct {
	signals domain.SignalStore
	bus     domain.SignalBus
	log     *slog.Logger
}

func NewSignalService(signals domain.SignalStore, bus domain.SignalBus, log *slog.Logger) *SignalService {
	return &SignalService{
		signals: signals,
		bus:     bus,
		log:     log.With("component", "signal_service"),
	}
}

// Ingest parses and stores a raw webhook body, returning the persisted
// signal and the requested position quantity.
func (s *SignalService) Ingest(ctx context.Context, raw []byte) (domain.Signal, float64, error) {
	var p WebhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Signal{}, 0, fmt.Errorf("%w: %v", domain.ErrInvalidSignal, err)
	}

	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
	p.Action = strings.ToLower(strings.TrimSpace(p.Action))

	if p.Ticker == "" {
		return domain.Signal{}, 0, fmt.Errorf("%w: missing ticker", domain.ErrInvalidSignal)
	}
	if p.Action != "buy" && p.Action != "sell" {
		return domain.Signal{}, 0, fmt.Errorf("%w: action must be buy or sell", domain.ErrInvalidSignal)
	}
	if p.Price <= 0 {
		return domain.Signal{}, 0, fmt.Errorf("%w: price must be positive", domain.ErrInvalidSignal)
	}
	if p.StopLoss <= 0 || p.Target1 <= 0 {
		return domain.Signal{}, 0, fmt.Errorf("%w: stop_loss and target_1 are required", domain.ErrInvalidSignal)
	}
	if p.ATR < 0 {
		return domain.Signal{}, 0, fmt.Errorf("%w: atr must not be negative", domain.ErrInvalidSignal)
	}

	sig := domain.Signal{
		ID:         uuid.NewString(),
		Ticker:     p.Ticker,
		Action:     p.Action,
		Price:      p.Price,
		ATR:        p.ATR,
		StopLoss:   p.StopLoss,
		Target1:    p.Target1,
		Target2:    p.Target2,
		Source:     p.Source,
		Payload:    raw,
		ReceivedAt: time.Now().UTC(),
	}

	if err := s.signals.Create(ctx, sig); err != nil {
		return domain.Signal{}, 0, fmt.Errorf("service: store signal: %w", err)
	}

	s.log.Info("signal ingested", "signal_id", sig.ID, "ticker", sig.Ticker, "action", sig.Action)

	if s.bus != nil {
		if payload, err := json.Marshal(sig); err == nil {
			if err := s.bus.Publish(ctx, ChannelSignalReceived, payload); err != nil {
				s.log.Warn("publish signal", "signal_id", sig.ID, "error", err)
			}
			if err := s.bus.StreamAppend(ctx, StreamSignalReceived, payload); err != nil {
				s.log.Warn("append signal stream", "signal_id", sig.ID, "error", err)
			}
		}
	}
	return sig, p.Quantity, nil
}

// ListRecent returns the latest signals, newest first.
func (s *SignalService) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Signal, error) {
	return s.signals.ListRecent(ctx, opts)
}
