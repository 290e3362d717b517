package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"bars-archive/internal/model"
	"bars-archive/internal/provider"
	"bars-archive/internal/store"
	"bars-archive/internal/validate"
)

// DefaultExchangeLimit is the number of bars requested per poll.
const DefaultExchangeLimit = 1000

// ExchangeResult summarizes one exchange update run.
type ExchangeResult struct {
	Provider       string `json:"provider"`
	Key            string `json:"key"`
	Symbol         string `json:"data_symbol"`
	Exchange       string `json:"exchange"`
	Path           string `json:"min1_path"`
	CacheRows      int    `json:"cache_rows"`
	DownloadedRows int    `json:"downloaded_rows"`
}

// Poll pages through dp from the start day's midnight until the day after end,
// advancing one minute past the last returned bar. It stops at the end bound or on
// the first empty batch. Bars at or after the end bound are dropped. On error the
// bars polled so far are returned with it.
func Poll(ctx context.Context, dp provider.DataProvider, symbol string, start, end time.Time, limit int, limiter *rate.Limiter) (model.Series, error) {
	since := model.DayOf(start).Midnight()
	stop := model.DayOf(end).Midnight().AddDate(0, 0, 1)
	stopMs := stop.UnixMilli()

	var rows model.Series
	for since.Before(stop) {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return rows, err
			}
		}
		batch, err := dp.FetchBars(ctx, symbol, since, limit)
		if err != nil {
			return rows, fmt.Errorf("fetch %s since %s: %w", symbol, since.Format(time.RFC3339), err)
		}
		if len(batch) == 0 {
			break
		}
		for _, b := range batch {
			if b.Timestamp < stopMs {
				rows = append(rows, b)
			}
		}
		next := time.UnixMilli(batch[len(batch)-1].Timestamp).UTC().Add(time.Minute)
		if !next.After(since) {
			break
		}
		since = next
	}
	return rows, nil
}

// ExchangeUpdater polls an exchange adapter and merges the result into the exchange
// namespace of the store.
type ExchangeUpdater struct {
	store   *store.Store
	limit   int
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewExchangeUpdater returns an updater requesting limit bars per poll and waiting
// at least delay between polls.
func NewExchangeUpdater(s *store.Store, limit int, delay time.Duration, logger *slog.Logger) *ExchangeUpdater {
	if limit <= 0 {
		limit = DefaultExchangeLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	every := rate.Inf
	if delay > 0 {
		every = rate.Every(delay)
	}
	return &ExchangeUpdater{
		store:   s,
		limit:   limit,
		limiter: rate.NewLimiter(every, 1),
		logger:  logger,
	}
}

// Update polls [start, end] for symbol and merges the validated bars into key.
// Exchange data skips the jump filter. When polling fails, rows already received
// are merged before the error is returned.
func (u *ExchangeUpdater) Update(ctx context.Context, dp provider.DataProvider, symbol, key string, start, end time.Time) (ExchangeResult, error) {
	res := ExchangeResult{
		Provider: u.store.Provider(),
		Key:      key,
		Symbol:   symbol,
		Exchange: dp.GetName(),
		Path:     u.store.ArchivePath(key),
	}
	logger := u.logger.With("provider", res.Provider, "key", key, "exchange", res.Exchange)

	existing, err := u.store.Load(key)
	if err != nil {
		return res, err
	}

	rows, pollErr := Poll(ctx, dp, symbol, start, end, u.limit, u.limiter)
	res.DownloadedRows = len(rows)
	if pollErr != nil {
		logger.Warn("poll stopped", "rows", len(rows), "error", pollErr)
	}

	archive := existing
	if clean := validate.Clean(rows, 0); len(clean) > 0 {
		merged, err := u.store.Merge(key, existing, clean)
		if err != nil {
			return res, err
		}
		archive = merged
	}
	res.CacheRows = len(archive)
	logger.Info("update done", "downloaded_rows", res.DownloadedRows, "cache_rows", res.CacheRows)
	return res, pollErr
}
