// Package pricing fetches live quotes from external market data providers
// and falls back across them when one is down or rate limited.
package pricing

import "context"

// Quote is a single price observation for a ticker.
type Quote struct {
	Ticker string
	Price  float64
}

// Provider fetches the current price for a ticker from one upstream source.
// Implementations must treat a zero or negative price as a failure.
type Provider interface {
	Name() string
	Quote(ctx context.Context, ticker string) (Quote, error)
}
