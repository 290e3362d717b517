// Package polygon fetches 1-minute aggregates from the Polygon REST API.
package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bars-archive/internal/model"
)

const (
	// DefaultBaseURL is the public REST root.
	DefaultBaseURL = "https://api.polygon.io"

	// Max 50k results per request
	maxLimit = 50000

	maxRetries = 3
	retryDelay = 15 * time.Second
)

var errMissingAPIKey = errors.New("polygon: POLYGON_API_KEY not set")

// Crawler fetches minute aggregates with one API key.
type Crawler struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	retryDelay time.Duration
}

// Close closes connections
func (c *Crawler) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// buildMinuteAggregatesRequest builds GET request for 1-minute aggregates (adjusted, limit, sort, apiKey).
func (c *Crawler) buildMinuteAggregatesRequest(ctx context.Context, ticker string, fromMillis, toMillis int64, limit int) (*http.Request, error) {
	rawURL := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/minute/%d/%d", c.baseURL, url.PathEscape(ticker), fromMillis, toMillis)
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("adjusted", "true")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort", "asc")
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// doAggregatesRequest runs one GET request, retrying transport errors and 429.
// Returns (nil, nil) when status is DELAYED; the caller treats it as no rows.
func (c *Crawler) doAggregatesRequest(ctx context.Context, req *http.Request) (*AggregatesResponse, error) {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			if err := wait(ctx, c.retryDelay); err != nil {
				return nil, err
			}
		}
		resp, err := c.client.Do(req)
		if err != nil {
			if attempt < maxRetries && ctx.Err() == nil {
				slog.Debug("polygon request failed, retrying", "attempt", attempt, "error", err)
				continue
			}
			return nil, fmt.Errorf("API call failed after %d attempts: %w", attempt, err)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
				slog.Debug("polygon rate limited, retrying", "attempt", attempt)
				continue
			}
			return nil, fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
		}

		var result AggregatesResponse
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}

		switch result.Status {
		case "OK":
			return &result, nil
		case "DELAYED":
			return nil, nil
		default:
			return nil, fmt.Errorf("API status not OK: %s", result.Status)
		}
	}
	return nil, fmt.Errorf("no response")
}

// FetchBars returns up to limit consecutive minute bars starting at since.
// The window runs to the present and limit with ascending sort caps the page,
// so a market gap longer than limit minutes does not end paging.
func (c *Crawler) FetchBars(ctx context.Context, symbol string, since time.Time, limit int) ([]model.Bar, error) {
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	from := since.UTC()
	to := time.Now().UTC()
	if floor := from.Add(time.Duration(limit) * time.Minute); to.Before(floor) {
		to = floor
	}

	req, err := c.buildMinuteAggregatesRequest(ctx, symbol, from.UnixMilli(), to.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	response, err := c.doAggregatesRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, nil
	}

	bars := make([]model.Bar, 0, len(response.Results))
	for _, barRaw := range response.Results {
		bars = append(bars, barRaw.ToBar())
	}
	return bars, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
