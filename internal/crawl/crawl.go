package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bars-archive/internal/bi5"
	"bars-archive/internal/model"
	"bars-archive/internal/store"
	"bars-archive/internal/validate"
)

// DayFetcher retrieves the raw compressed payload of one calendar day.
type DayFetcher interface {
	FetchDay(ctx context.Context, symbol string, day time.Time) ([]byte, error)
}

// Result summarizes one update run for one instrument.
type Result struct {
	Provider       string `json:"provider"`
	Key            string `json:"key"`
	Symbol         string `json:"data_symbol"`
	Path           string `json:"min1_path"`
	CacheRows      int    `json:"cache_rows"`
	MissingDays    int    `json:"missing_days"`
	DownloadedDays int    `json:"downloaded_days"`
	SkippedDays    int    `json:"skipped_days"`
	FailStreak     int    `json:"fail_streak"`
	Tripped        bool   `json:"tripped"`
}

// Orchestrator drives missing-day detection, day fetches, decoding, validation and the
// final archive merge for the vendor feed. Days are fetched one at a time.
type Orchestrator struct {
	fetcher DayFetcher
	store   *store.Store
	cfg     Config
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires a fetcher and a store with cfg. Zero fields of cfg take defaults.
func NewOrchestrator(f DayFetcher, s *store.Store, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		fetcher: f,
		store:   s,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Update fetches every weekday of [start, end] missing from the archive of key and merges
// the results in one write. Failed days are skipped; MaxFailStreak consecutive skips stop
// the loop early. Bars fetched before the stop are still merged.
//
// An error is returned only for storage failures or when ctx is cancelled; in the latter
// case the days fetched so far are merged first.
func (o *Orchestrator) Update(ctx context.Context, symbol, key string, start, end time.Time) (Result, error) {
	res := Result{
		Provider: o.store.Provider(),
		Key:      key,
		Symbol:   symbol,
		Path:     o.store.ArchivePath(key),
	}
	logger := o.logger.With("provider", res.Provider, "key", key)

	existing, err := o.store.Load(key)
	if err != nil {
		return res, err
	}
	var have map[model.Day]bool
	if existing != nil {
		have = existing.Days()
	}
	missing := MissingDays(start, end, have)
	res.MissingDays = len(missing)
	logger.Info("missing days", "count", len(missing), "cached_rows", len(existing))

	sym := strings.ToUpper(symbol)
	breaker := NewBreaker(o.cfg.MaxFailStreak)
	var fresh model.Series
	var runErr error

	for _, day := range missing {
		bars := o.fetchDay(ctx, logger, sym, day)
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if len(bars) == 0 {
			res.SkippedDays++
			if breaker.Failure() {
				res.Tripped = true
				logger.Warn("fail streak reached, stopping", "day", day.Format("2006-01-02"), "streak", breaker.Streak())
				break
			}
		} else {
			fresh = append(fresh, bars...)
			res.DownloadedDays++
			breaker.Success()
			logger.Debug("day ok", "day", day.Format("2006-01-02"), "bars", len(bars))
		}

		if o.cfg.DayDelay > 0 {
			if err := o.sleep(ctx, o.cfg.DayDelay); err != nil {
				runErr = err
				break
			}
		}
	}
	res.FailStreak = breaker.Streak()

	archive := existing
	if len(fresh) > 0 {
		fresh.Sort()
		merged, err := o.store.Merge(key, existing, fresh)
		if err != nil {
			return res, errors.Join(runErr, err)
		}
		archive = merged
	}
	res.CacheRows = len(archive)
	logger.Info("update done",
		"downloaded_days", res.DownloadedDays,
		"skipped_days", res.SkippedDays,
		"fail_streak", res.FailStreak,
		"cache_rows", res.CacheRows)
	return res, runErr
}

// fetchDay makes up to Retries+1 attempts and returns the first non-empty validated result.
func (o *Orchestrator) fetchDay(ctx context.Context, logger *slog.Logger, symbol string, day time.Time) model.Series {
	attempts := o.cfg.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return nil
		}
		bars, err := o.attempt(ctx, symbol, day)
		if err != nil {
			logger.Debug("attempt failed", "day", day.Format("2006-01-02"), "attempt", attempt, "of", attempts, "error", err)
			continue
		}
		if len(bars) > 0 {
			return bars
		}
		logger.Debug("attempt empty", "day", day.Format("2006-01-02"), "attempt", attempt, "of", attempts)
	}
	return nil
}

func (o *Orchestrator) attempt(ctx context.Context, symbol string, day time.Time) (model.Series, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	raw, err := o.fetcher.FetchDay(ctx, symbol, day)
	if err != nil {
		return nil, err
	}
	bars, err := bi5.Decode(raw, day, o.cfg.PriceScale)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", day.Format("2006-01-02"), err)
	}
	return validate.Clean(bars, o.cfg.MaxJump), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
