package dukascopy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayURLUsesZeroIndexedMonth(t *testing.T) {
	f := NewFetcher("https://example.test/feed/")
	got := f.DayURL("eurusd", time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "https://example.test/feed/EURUSD/2024/00/05/BID_candles_min_1.bi5", got)
}

func TestFetchDay(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotUA = r.URL.Path, r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/EURUSD/2024/11/31/BID_candles_min_1.bi5":
			w.Write([]byte{0x5d, 0x00})
		case "/EURUSD/2024/11/30/BID_candles_min_1.bi5":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL)
	body, err := f.FetchDay(context.Background(), "EURUSD", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x5d, 0x00}, body)
	assert.Equal(t, "/EURUSD/2024/11/31/BID_candles_min_1.bi5", gotPath)
	assert.Equal(t, userAgent, gotUA)

	_, err = f.FetchDay(context.Background(), "EURUSD", time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC))
	assert.ErrorContains(t, err, "empty body")

	_, err = f.FetchDay(context.Background(), "EURUSD", time.Date(2024, 12, 27, 0, 0, 0, 0, time.UTC))
	assert.ErrorContains(t, err, "status 404")
}

func TestFetchDayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewFetcher(srv.URL).FetchDay(ctx, "EURUSD", time.Now())
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "XAUUSD", Key(" xauusd "))
}
