package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bars-archive/internal/bi5"
	"bars-archive/internal/crawl"
	"bars-archive/internal/model"
	"bars-archive/internal/provider"
	"bars-archive/internal/provider/dukascopy"
	"bars-archive/internal/resample"
	"bars-archive/internal/saver"
)

const testInstruments = `ftmo_symbol,source,data_symbol,exchange,price_scale
EURUSD,dukascopy,eurusd,,
BTCUSD,ccxt,BTC/USDT,fake,
SPX,stooq,^spx,,
`

type fakeExchange struct {
	bars   model.Series
	closed bool
}

func (f *fakeExchange) FetchBars(_ context.Context, _ string, since time.Time, limit int) ([]model.Bar, error) {
	var out []model.Bar
	for _, b := range f.bars {
		if b.Timestamp >= since.UnixMilli() && len(out) < limit {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeExchange) GetName() string { return "fake" }
func (f *fakeExchange) Close() error    { f.closed = true; return nil }

type runnerFixture struct {
	runner   *Runner
	cfg      *Config
	exchange *fakeExchange
	requests *atomic.Int32
	opts     Options
}

func day(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }

// newRunnerFixture serves 2024-01-02 and 2024-01-03 from the vendor feed and 30
// minutes of 2024-01-02 from the fake exchange.
func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	dir := t.TempDir()
	instruments := filepath.Join(dir, "instruments.csv")
	require.NoError(t, os.WriteFile(instruments, []byte(testInstruments), 0644))

	payloads := map[string][]byte{}
	for _, d := range []time.Time{day(2), day(3)} {
		var bars model.Series
		for i := 0; i < 10; i++ {
			ts := d.Add(time.Duration(i) * time.Minute).UnixMilli()
			bars = append(bars, model.Bar{Timestamp: ts, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.1, Volume: 3})
		}
		raw, err := bi5.Encode(bars, d, bi5.DefaultPriceScale)
		require.NoError(t, err)
		payloads[dukascopy.NewFetcher("").DayURL("EURUSD", d)[len(dukascopy.DefaultBaseURL):]] = raw
	}

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		raw, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(raw)
	}))
	t.Cleanup(srv.Close)

	cfg := &Config{
		DataDir:         filepath.Join(dir, "data"),
		InstrumentsFile: instruments,
		SaveFormat:      "csv",
		PriceScale:      bi5.DefaultPriceScale,
		Timeout:         5 * time.Second,
		Retries:         0,
		MaxFailStreak:   10,
		MaxJump:         0.5,
		ExchangeLimit:   10,
	}
	ex := &fakeExchange{}
	for i := 0; i < 30; i++ {
		ts := day(2).Add(time.Duration(i) * time.Minute).UnixMilli()
		ex.bars = append(ex.bars, model.Bar{Timestamp: ts, Open: 40000, High: 40010, Low: 39990, Close: 40005, Volume: 2})
	}
	factory := func(name string) (provider.DataProvider, error) {
		if name != "fake" {
			return provider.NewExchange(name, cfg.ExchangeOptions())
		}
		return ex, nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tf, err := resample.ParseTimeframes([]string{"5m", "1h"})
	require.NoError(t, err)
	return &runnerFixture{
		runner:   NewRunner(cfg, saver.CSVCodec{}, dukascopy.NewFetcher(srv.URL), factory, logger),
		cfg:      cfg,
		exchange: ex,
		requests: &requests,
		opts:     Options{Start: day(1), End: day(5), Timeframes: tf},
	}
}

func TestRunnerFetch(t *testing.T) {
	f := newRunnerFixture(t)

	report, err := f.runner.Fetch(context.Background(), f.opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"EURUSD", "BTCUSDT_FAKE"}, report.Success)
	assert.Empty(t, report.Failed)
	assert.Equal(t, int32(5), f.requests.Load())
	assert.True(t, f.exchange.closed)

	vendor := report.Results[0].(InstrumentResult)
	res := vendor.Update.(crawl.Result)
	assert.Equal(t, 5, res.MissingDays)
	assert.Equal(t, 2, res.DownloadedDays)
	assert.Equal(t, 20, res.CacheRows)
	require.NotNil(t, vendor.Derive)
	assert.Equal(t, 4, vendor.Derive.Derived["5m"].Rows)

	exch := report.Results[1].(InstrumentResult).Update.(crawl.ExchangeResult)
	assert.Equal(t, 30, exch.CacheRows)

	for _, p := range []string{
		"dukascopy/min1/EURUSD.csv",
		"dukascopy/derived/EURUSD_5m.csv",
		"dukascopy/derived/EURUSD_1h.csv",
		"ccxt/min1/BTCUSDT_FAKE.csv",
		"ccxt/derived/BTCUSDT_FAKE_1h.csv",
		crawl.ReportFile,
	} {
		assert.FileExists(t, filepath.Join(f.cfg.DataDir, p))
	}

	// Second run only asks for the days still missing.
	_, err = f.runner.Fetch(context.Background(), f.opts)
	require.NoError(t, err)
	assert.Equal(t, int32(8), f.requests.Load())
}

func TestRunnerFetchUnknownExchangeAbortsBeforeDownloading(t *testing.T) {
	f := newRunnerFixture(t)
	data := strings.Replace(testInstruments, ",fake,", ",kraken,", 1)
	require.NoError(t, os.WriteFile(f.cfg.InstrumentsFile, []byte(data), 0644))

	_, err := f.runner.Fetch(context.Background(), f.opts)
	assert.ErrorIs(t, err, provider.ErrUnknownExchange)
	assert.Zero(t, f.requests.Load())
}

func TestRunnerFetchHonorsSelection(t *testing.T) {
	f := newRunnerFixture(t)
	f.opts.Selection = Selection{Only: SourceExchange}

	report, err := f.runner.Fetch(context.Background(), f.opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT_FAKE"}, report.Success)
	assert.Zero(t, f.requests.Load())
}

func TestRunnerFetchStopsOnCancel(t *testing.T) {
	f := newRunnerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.runner.Fetch(ctx, f.opts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerFetchWritesReportWhenCancelledBetweenInstruments(t *testing.T) {
	f := newRunnerFixture(t)
	f.cfg.InstrumentDelay = time.Hour
	f.runner.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	report, err := f.runner.Fetch(context.Background(), f.opts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"EURUSD"}, report.Success)
	assert.FileExists(t, filepath.Join(f.cfg.DataDir, crawl.ReportFile))
}

func TestRunnerDeriveAndPurge(t *testing.T) {
	f := newRunnerFixture(t)
	_, err := f.runner.Derive(context.Background(), Options{})
	assert.Error(t, err)

	results, err := f.runner.Derive(context.Background(), f.opts)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].OK)

	_, err = f.runner.Fetch(context.Background(), f.opts)
	require.NoError(t, err)

	_, err = f.runner.Purge(Selection{}, "nasdaq")
	assert.Error(t, err)

	n, err := f.runner.Purge(Selection{Only: SourceExchange}, SourceDukascopy)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoFileExists(t, filepath.Join(f.cfg.DataDir, "dukascopy/min1/EURUSD.csv"))
	assert.FileExists(t, filepath.Join(f.cfg.DataDir, "ccxt/min1/BTCUSDT_FAKE.csv"))

	n, err = f.runner.Purge(Selection{}, "all")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRunnerPlan(t *testing.T) {
	f := newRunnerFixture(t)
	var buf bytes.Buffer
	require.NoError(t, f.runner.Plan(&buf, f.opts))

	out := buf.String()
	assert.Contains(t, out, "EURUSD")
	assert.Contains(t, out, "BTCUSDT_FAKE")
	assert.Contains(t, out, "BTC/USDT (fake)")
	assert.NotContains(t, out, "SPX")
	assert.Zero(t, f.requests.Load())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "5", strings.Fields(lines[1])[5])
}
