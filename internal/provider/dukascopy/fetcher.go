// Package dukascopy downloads one calendar day of minute candles from the vendor datafeed.
package dukascopy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// Name is the provider namespace of the vendor feed.
	Name = "dukascopy"

	// DefaultBaseURL is the public datafeed root.
	DefaultBaseURL = "https://datafeed.dukascopy.com/datafeed"

	userAgent = "Mozilla/5.0"

	// Day files are small; anything larger is not a candle file.
	maxBodyBytes = 16 << 20
)

// Fetcher retrieves raw day files over HTTP.
type Fetcher struct {
	client  *http.Client
	baseURL string
}

// NewFetcher returns a Fetcher for baseURL (DefaultBaseURL when empty).
// Each FetchDay call is bounded by the deadline of its context.
func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		client:  newHTTPClient(),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Key returns the instrument key of a vendor symbol.
func Key(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// DayURL builds the day-file URL. Months are zero-indexed in the path.
func (f *Fetcher) DayURL(symbol string, day time.Time) string {
	day = day.UTC()
	return fmt.Sprintf("%s/%s/%d/%02d/%02d/BID_candles_min_1.bi5",
		f.baseURL, strings.ToUpper(symbol), day.Year(), int(day.Month())-1, day.Day())
}

// FetchDay downloads the compressed day file. Non-200 responses and empty
// bodies are errors.
func (f *Fetcher) FetchDay(ctx context.Context, symbol string, day time.Time) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.DayURL(symbol, day), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", day.Format("2006-01-02"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("get %s: status %d", day.Format("2006-01-02"), resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", day.Format("2006-01-02"), err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("get %s: empty body", day.Format("2006-01-02"))
	}
	return body, nil
}
