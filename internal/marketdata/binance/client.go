// Package binance adapts the Binance USD-M futures API to the candle and
// ticker ports. The REST client serves the polling path; Stream serves
// the live path over the combined kline WebSocket.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"signalbotv1/internal/model"
)

const (
	defaultBaseURL = "https://fapi.binance.com"
	klinePath      = "/fapi/v1/klines"
	tickerPath     = "/fapi/v1/ticker/24hr"
	maxKlineLimit  = 1500
)

// Client is a Binance futures REST client implementing model.CandleSource
// and model.TickerSource.
type Client struct {
	baseURL string
	http    *http.Client

	// marketCaps maps symbol to an externally sourced market cap, applied
	// to snapshots. Binance does not serve market caps; symbols without an
	// entry get defaultMarketCap so the floor check still runs.
	// TODO: feed this from the CoinGecko /coins/markets endpoint.
	marketCaps map[string]float64
}

// defaultMarketCap is assumed for symbols with no configured market cap.
const defaultMarketCap = 1_000_000_000

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMarketCaps supplies per-symbol market caps for snapshots.
func WithMarketCaps(caps map[string]float64) Option {
	return func(c *Client) { c.marketCaps = caps }
}

// NewClient creates a futures REST client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Klines fetches up to limit most recent candles for symbol/timeframe and
// returns them as a validated series, oldest first.
func (c *Client) Klines(ctx context.Context, symbol, timeframe string, limit int) (*model.Series, error) {
	if limit <= 0 || limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	u, err := url.Parse(c.baseURL + klinePath)
	if err != nil {
		return nil, fmt.Errorf("binance: parse url: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("binance: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance: klines %s/%s: unexpected status %s", symbol, timeframe, resp.Status)
	}

	// Each kline is a JSON array; Binance returns [][]json.RawMessage.
	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("binance: decode klines: %w", err)
	}

	candles, err := parseKlines(symbol, timeframe, raw)
	if err != nil {
		return nil, err
	}

	s := &model.Series{Symbol: symbol, Timeframe: timeframe, Candles: candles}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("binance: klines %s/%s: %w", symbol, timeframe, err)
	}
	return s, nil
}

// ticker24h is the /fapi/v1/ticker/24hr response subset we read.
type ticker24h struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
}

// Snapshot fetches the 24h ticker for symbol and combines it with the
// configured market cap.
func (c *Client) Snapshot(ctx context.Context, symbol string) (model.MarketSnapshot, error) {
	u, err := url.Parse(c.baseURL + tickerPath)
	if err != nil {
		return model.MarketSnapshot{}, fmt.Errorf("binance: parse url: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.MarketSnapshot{}, fmt.Errorf("binance: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.MarketSnapshot{}, fmt.Errorf("binance: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.MarketSnapshot{}, fmt.Errorf("binance: ticker %s: unexpected status %s", symbol, resp.Status)
	}

	var t ticker24h
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return model.MarketSnapshot{}, fmt.Errorf("binance: decode ticker: %w", err)
	}

	last, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return model.MarketSnapshot{}, fmt.Errorf("binance: ticker %s lastPrice: %w", symbol, err)
	}
	vol, err := strconv.ParseFloat(t.QuoteVolume, 64)
	if err != nil {
		return model.MarketSnapshot{}, fmt.Errorf("binance: ticker %s quoteVolume: %w", symbol, err)
	}

	cap, ok := c.marketCaps[symbol]
	if !ok {
		cap = defaultMarketCap
	}

	return model.MarketSnapshot{
		Symbol:    symbol,
		LastPrice: last,
		Volume24h: vol,
		MarketCap: cap,
	}, nil
}

// parseKlines converts the raw Binance wire format into candles.
//
// Kline array layout:
//
//	[0] Open time (int64, Unix ms)
//	[1] Open, [2] High, [3] Low, [4] Close, [5] Volume (strings)
//	[6] Close time (int64, Unix ms), remaining fields unused
func parseKlines(symbol, timeframe string, raw [][]json.RawMessage) ([]model.Candle, error) {
	out := make([]model.Candle, 0, len(raw))
	for i, r := range raw {
		if len(r) < 7 {
			return nil, fmt.Errorf("binance: kline[%d] has %d fields, want >=7", i, len(r))
		}

		var openMs int64
		if err := json.Unmarshal(r[0], &openMs); err != nil {
			return nil, fmt.Errorf("binance: kline[%d] open_time: %w", i, err)
		}

		o, err := parsePrice(r[1])
		if err != nil {
			return nil, fmt.Errorf("binance: kline[%d] open: %w", i, err)
		}
		h, err := parsePrice(r[2])
		if err != nil {
			return nil, fmt.Errorf("binance: kline[%d] high: %w", i, err)
		}
		l, err := parsePrice(r[3])
		if err != nil {
			return nil, fmt.Errorf("binance: kline[%d] low: %w", i, err)
		}
		cl, err := parsePrice(r[4])
		if err != nil {
			return nil, fmt.Errorf("binance: kline[%d] close: %w", i, err)
		}
		v, err := parsePrice(r[5])
		if err != nil {
			return nil, fmt.Errorf("binance: kline[%d] volume: %w", i, err)
		}

		out = append(out, model.Candle{
			Symbol:    symbol,
			Timeframe: timeframe,
			TS:        time.UnixMilli(openMs).UTC(),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     cl,
			Volume:    v,
		})
	}
	return out, nil
}

// parsePrice unmarshals a quoted decimal ("42012.5") into a float64.
func parsePrice(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}
