package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cwhitfield/tickwatch/internal/domain"
)

// PriceCache stores the latest quote per ticker as a Redis hash under
// "price:{ticker}" with price and ts fields.
type PriceCache struct {
	client *Client
	ttl    time.Duration
}

var _ domain.PriceCache = (*PriceCache)(nil)

func NewPriceCache(client *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{client: client, ttl: ttl}
}

func priceKey(ticker string) string {
	return "price:" + ticker
}

func (p *PriceCache) SetPrice(ctx context.Context, ticker string, price float64, ts time.Time) error {
	key := priceKey(ticker)
	pipe := p.client.rdb.Pipeline()
	pipe.HSet(ctx, key, "price", price, "ts", ts.UnixMilli())
	if p.ttl > 0 {
		pipe.Expire(ctx, key, p.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", ticker, err)
	}
	return nil
}

func (p *PriceCache) GetPrice(ctx context.Context, ticker string) (float64, time.Time, error) {
	vals, err := p.client.rdb.HMGet(ctx, priceKey(ticker), "price", "ts").Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", ticker, err)
	}
	if vals[0] == nil || vals[1] == nil {
		return 0, time.Time{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(vals[0].(string), 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", ticker, err)
	}
	ms, err := strconv.ParseInt(vals[1].(string), 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price ts %s: %w", ticker, err)
	}
	return price, time.UnixMilli(ms), nil
}

func (p *PriceCache) GetPrices(ctx context.Context, tickers []string) (map[string]float64, error) {
	pipe := p.client.rdb.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(tickers))
	for _, t := range tickers {
		cmds[t] = pipe.HGet(ctx, priceKey(t), "price")
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis: get prices: %w", err)
	}

	out := make(map[string]float64, len(tickers))
	for t, cmd := range cmds {
		v, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis: get price %s: %w", t, err)
		}
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: parse price %s: %w", t, err)
		}
		out[t] = price
	}
	return out, nil
}
