// Package binance fetches 1-minute klines from the Binance spot REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"bars-archive/internal/model"
)

const (
	// DefaultBaseURL is the public spot REST root.
	DefaultBaseURL = "https://api.binance.com"

	klinesPath = "/api/v3/klines"
	maxLimit   = 1000
)

// Client is a thin klines client.
type Client struct {
	http *resty.Client
}

// NewClient returns a Client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Symbol converts "BTC/USDT" style symbols to the exchange form "BTCUSDT".
func Symbol(s string) string {
	return strings.ToUpper(strings.NewReplacer("/", "", "-", "", "_", "").Replace(s))
}

// FetchBars returns up to limit consecutive 1m klines opening at or after since.
func (c *Client) FetchBars(ctx context.Context, symbol string, since time.Time, limit int) ([]model.Bar, error) {
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    Symbol(symbol),
			"interval":  "1m",
			"startTime": strconv.FormatInt(since.UnixMilli(), 10),
			"limit":     strconv.Itoa(limit),
		}).
		Get(klinesPath)
	if err != nil {
		return nil, fmt.Errorf("klines %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("klines %s: status %d: %s", symbol, resp.StatusCode(), resp.String())
	}

	var rows [][]any
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("klines %s: parse JSON: %w", symbol, err)
	}
	bars := make([]model.Bar, 0, len(rows))
	for i, row := range rows {
		b, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("klines %s row %d: %w", symbol, i, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}

// parseKline reads [openTime, open, high, low, close, volume, ...].
func parseKline(row []any) (model.Bar, error) {
	var b model.Bar
	if len(row) < 6 {
		return b, fmt.Errorf("want at least 6 fields, got %d", len(row))
	}
	vals := make([]float64, 6)
	for i := range vals {
		v, err := number(row[i])
		if err != nil {
			return b, fmt.Errorf("field %d: %w", i, err)
		}
		vals[i] = v
	}
	b.Timestamp = int64(vals[0])
	b.Open, b.High, b.Low, b.Close, b.Volume = vals[1], vals[2], vals[3], vals[4], vals[5]
	return b, nil
}

func number(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
