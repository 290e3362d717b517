package polygon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCrawler(t *testing.T, h http.HandlerFunc) *Crawler {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewCrawler("secret", srv.URL, 5*time.Second)
	require.NoError(t, err)
	c.retryDelay = 0
	return c
}

func TestFetchBars(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var gotPath, gotKey, gotLimit string
	c := newTestCrawler(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apiKey")
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`{"status":"OK","results":[
			{"t":1709251200000,"o":1,"h":2,"l":0.5,"c":1.5,"v":10},
			{"t":1709251260000,"o":1.5,"h":2,"l":1,"c":1.8,"v":"2.5"}]}`))
	})

	bars, err := c.FetchBars(context.Background(), "X:BTCUSD", since, 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, since.UnixMilli(), bars[0].Timestamp)
	assert.Equal(t, 2.5, bars[1].Volume)
	assert.True(t, strings.HasPrefix(gotPath, "/v2/aggs/ticker/X:BTCUSD/range/1/minute/1709251200000/"), gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "2", gotLimit)
}

func TestFetchBarsCrossesMarketGap(t *testing.T) {
	// Friday close, next bar Monday open: the gap exceeds limit minutes.
	friday := time.Date(2024, 3, 1, 20, 59, 0, 0, time.UTC)
	monday := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	available := []int64{friday.UnixMilli(), monday.UnixMilli(), monday.Add(time.Minute).UnixMilli()}

	c := newTestCrawler(t, func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		from, _ := strconv.ParseInt(parts[len(parts)-2], 10, 64)
		to, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		var rows []string
		for _, ts := range available {
			if ts >= from && ts <= to && len(rows) < limit {
				rows = append(rows, `{"t":`+strconv.FormatInt(ts, 10)+`,"o":1,"h":1,"l":1,"c":1,"v":1}`)
			}
		}
		w.Write([]byte(`{"status":"OK","results":[` + strings.Join(rows, ",") + `]}`))
	})

	bars, err := c.FetchBars(context.Background(), "AAPL", friday.Add(time.Minute), 60)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, monday.UnixMilli(), bars[0].Timestamp)
}

func TestFetchBarsDelayedIsEmpty(t *testing.T) {
	c := newTestCrawler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"DELAYED"}`))
	})
	bars, err := c.FetchBars(context.Background(), "AAPL", time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestFetchBarsRetriesRateLimit(t *testing.T) {
	calls := 0
	c := newTestCrawler(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"status":"OK","results":[]}`))
	})
	_, err := c.FetchBars(context.Background(), "AAPL", time.Now(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetchBarsServerError(t *testing.T) {
	c := newTestCrawler(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})
	_, err := c.FetchBars(context.Background(), "AAPL", time.Now(), 10)
	assert.ErrorContains(t, err, "403")
}

func TestNewCrawlerRequiresKey(t *testing.T) {
	_, err := NewCrawler("", "", time.Second)
	assert.Error(t, err)
}
