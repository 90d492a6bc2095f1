package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// TwelveData fetches quotes from the Twelve Data REST API.
type TwelveData struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ Provider = (*TwelveData)(nil)

func NewTwelveData(baseURL, apiKey string, timeout time.Duration) *TwelveData {
	return &TwelveData{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (t *TwelveData) Name() string { return "twelvedata" }

func (t *TwelveData) Quote(ctx context.Context, ticker string) (Quote, error) {
	u := fmt.Sprintf("%s/price?symbol=%s&apikey=%s",
		t.baseURL, url.QueryEscape(ticker), url.QueryEscape(t.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("twelvedata: build request: %w", err)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("twelvedata: quote %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, fmt.Errorf("twelvedata: quote %s: status %d: %s", ticker, resp.StatusCode, body)
	}

	// Twelve Data returns the price as a string; errors come back as a JSON
	// object with code and message instead.
	var payload struct {
		Price   string `json:"price"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("twelvedata: decode quote %s: %w", ticker, err)
	}
	if payload.Code != 0 {
		return Quote{}, fmt.Errorf("twelvedata: quote %s: api error %d: %s", ticker, payload.Code, payload.Message)
	}
	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("twelvedata: parse price %s: %w", ticker, err)
	}
	if price <= 0 {
		return Quote{}, fmt.Errorf("twelvedata: quote %s: no price", ticker)
	}
	return Quote{Ticker: ticker, Price: price}, nil
}
