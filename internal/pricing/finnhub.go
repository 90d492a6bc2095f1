package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Finnhub fetches quotes from the Finnhub REST API.
type Finnhub struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ Provider = (*Finnhub)(nil)

func NewFinnhub(baseURL, apiKey string, timeout time.Duration) *Finnhub {
	return &Finnhub{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (f *Finnhub) Name() string { return "finnhub" }

func (f *Finnhub) Quote(ctx context.Context, ticker string) (Quote, error) {
	u := fmt.Sprintf("%s/quote?symbol=%s&token=%s",
		f.baseURL, url.QueryEscape(ticker), url.QueryEscape(f.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("finnhub: build request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("finnhub: quote %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, fmt.Errorf("finnhub: quote %s: status %d: %s", ticker, resp.StatusCode, body)
	}

	// c is the current price; Finnhub returns c=0 for unknown symbols.
	var payload struct {
		Current float64 `json:"c"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("finnhub: decode quote %s: %w", ticker, err)
	}
	if payload.Current <= 0 {
		return Quote{}, fmt.Errorf("finnhub: quote %s: no price", ticker)
	}
	return Quote{Ticker: ticker, Price: payload.Current}, nil
}
