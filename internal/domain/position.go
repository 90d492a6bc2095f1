package domain

import "time"

// PositionStatus tracks whether a position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// IsLong reports whether the side is LONG.
func (s Side) IsLong() bool {
	return s == SideLong
}

// ExitReason records why a position was closed. It is set if and only if the
// position status is closed.
type ExitReason string

const (
	ExitReasonStopLoss ExitReason = "stop_loss"
	ExitReasonTarget1  ExitReason = "target_1"
	ExitReasonTarget2  ExitReason = "target_2"
	ExitReasonTrailing ExitReason = "trailing"
	ExitReasonManual   ExitReason = "manual"
)

// Position represents a simulated (paper) market exposure. The entry terms
// (ticker, side, quantity, entry price, risk levels) are fixed at open time;
// only the lifecycle fields mutate, and the open→closed transition happens
// exactly once.
type Position struct {
	ID              string         `json:"id"`
	SignalID        string         `json:"signal_id"`
	Ticker          string         `json:"ticker"`
	Side            Side           `json:"side"`
	Quantity        float64        `json:"quantity"`
	EntryPrice      float64        `json:"entry_price"`
	StopLoss        float64        `json:"stop_loss"`
	Target1         float64        `json:"target_1"`
	Target2         *float64       `json:"target_2,omitempty"`
	TrailingEnabled bool           `json:"trailing_enabled"`
	ATR             float64        `json:"atr"` // copied from the originating signal at open
	Status          PositionStatus `json:"status"`
	EnteredAt       time.Time      `json:"entered_at"`

	// Set on close.
	ExitedAt             *time.Time  `json:"exited_at,omitempty"`
	ExitPrice            *float64    `json:"exit_price,omitempty"`
	ExitValue            *float64    `json:"exit_value,omitempty"`
	ExitReason           *ExitReason `json:"exit_reason,omitempty"`
	PnL                  *float64    `json:"pnl,omitempty"`
	PnLPercent           *float64    `json:"pnl_percent,omitempty"`
	RMultiple            *float64    `json:"r_multiple,omitempty"`
	HoldingPeriodMinutes *int64      `json:"holding_period_minutes,omitempty"`
}

// IsOpen reports whether the position is still open.
func (p Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// PositionClose carries the derived outcome fields persisted when a position
// transitions to closed.
type PositionClose struct {
	ExitedAt             time.Time
	ExitPrice            float64
	ExitValue            float64
	ExitReason           ExitReason
	PnL                  float64
	PnLPercent           float64
	RMultiple            float64
	HoldingPeriodMinutes int64
}

// PnLSnapshot is a transient per-pass observation of an open position's
// unrealized performance. It is published for dashboard observers and never
// persisted.
type PnLSnapshot struct {
	PositionID           string    `json:"position_id"`
	Ticker               string    `json:"ticker"`
	CurrentPrice         float64   `json:"current_price"`
	UnrealizedPnL        float64   `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64   `json:"unrealized_pnl_percent"`
	RMultiple            float64   `json:"r_multiple"`
	At                   time.Time `json:"at"`
}

// MonitorStatus is the summary returned by the monitor status query.
type MonitorStatus struct {
	IsRunning         bool  `json:"is_running"`
	OpenPositionCount int64 `json:"open_position_count"`
}
