package pricing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// Chain tries each provider in order until one returns a usable price.
// Successful quotes are written through to the price cache when one is
// configured; cache failures are logged and never fail the quote.
type Chain struct {
	providers []Provider
	cache     domain.PriceCache
	timeout   time.Duration
	log       *slog.Logger
}

func NewChain(providers []Provider, cache domain.PriceCache, timeout time.Duration, log *slog.Logger) *Chain {
	return &Chain{
		providers: providers,
		cache:     cache,
		timeout:   timeout,
		log:       log.With("component", "pricing"),
	}
}

// GetPrice returns the current price for a ticker. It returns
// domain.ErrPriceUnavailable when every provider fails or reports a
// non-positive price.
func (c *Chain) GetPrice(ctx context.Context, ticker string) (float64, error) {
	var lastErr error
	for _, p := range c.providers {
		pctx := ctx
		var cancel context.CancelFunc
		if c.timeout > 0 {
			pctx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		q, err := p.Quote(pctx, ticker)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			c.log.Warn("provider failed", "provider", p.Name(), "ticker", ticker, "error", err)
			lastErr = err
			continue
		}

		if c.cache != nil {
			if err := c.cache.SetPrice(ctx, ticker, q.Price, time.Now().UTC()); err != nil {
				c.log.Warn("price cache write failed", "ticker", ticker, "error", err)
			}
		}
		return q.Price, nil
	}
	if lastErr != nil {
		return 0, errors.Join(domain.ErrPriceUnavailable, lastErr)
	}
	return 0, domain.ErrPriceUnavailable
}

// GetPrices fetches prices for a set of tickers concurrently. Tickers whose
// price could not be determined are absent from the result; only a cancelled
// context produces an error.
func (c *Chain) GetPrices(ctx context.Context, tickers []string) (map[string]float64, error) {
	type result struct {
		ticker string
		price  float64
	}

	results := make(chan result, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, ticker := range tickers {
		g.Go(func() error {
			price, err := c.GetPrice(gctx, ticker)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			}
			results <- result{ticker: ticker, price: price}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	out := make(map[string]float64, len(tickers))
	for r := range results {
		out[r.ticker] = r.price
	}
	return out, nil
}
