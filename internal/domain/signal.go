package domain

import "time"

// Signal is a webhook trading signal as received from an upstream alerting
// system. Positions keep a read-only reference to the signal that originated
// them; the exit engine reads ATR from it to size the trailing-stop offset.
type Signal struct {
	ID         string    `json:"id"`
	Ticker     string    `json:"ticker"`
	Action     string    `json:"action"` // "buy" or "sell"
	Price      float64   `json:"price"`
	ATR        float64   `json:"atr"` // average true range at signal time
	StopLoss   float64   `json:"stop_loss"`
	Target1    float64   `json:"target_1"`
	Target2    *float64  `json:"target_2,omitempty"`
	Source     string    `json:"source"`
	Payload    []byte    `json:"-"` // raw webhook body, kept for auditing
	ReceivedAt time.Time `json:"received_at"`
}
