package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"bars-archive/internal/crawl"
	"bars-archive/internal/model"
	"bars-archive/internal/provider"
	"bars-archive/internal/resample"
	"bars-archive/internal/saver"
	"bars-archive/internal/store"
)

// ExchangeFactory builds the adapter for an exchange name.
type ExchangeFactory func(name string) (provider.DataProvider, error)

// Options selects what a run touches.
type Options struct {
	Start      time.Time
	End        time.Time
	Timeframes []resample.Timeframe
	Selection  Selection
}

// InstrumentResult is the per-instrument entry of the run report.
type InstrumentResult struct {
	Name   string                 `json:"name"`
	Source string                 `json:"source"`
	Update any                    `json:"update,omitempty"`
	Derive *resample.DeriveResult `json:"derive,omitempty"`
}

// Runner executes fetch, derive, plan and purge over the instruments file.
// Instruments are processed one at a time in file order.
type Runner struct {
	cfg         *Config
	codec       saver.Codec
	fetcher     crawl.DayFetcher
	newExchange ExchangeFactory
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRunner wires the runner. cfg is read at call time so flag overrides applied
// after construction take effect.
func NewRunner(cfg *Config, codec saver.Codec, fetcher crawl.DayFetcher, newExchange ExchangeFactory, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:         cfg,
		codec:       codec,
		fetcher:     fetcher,
		newExchange: newExchange,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

func (r *Runner) storeFor(source string) *store.Store {
	return store.New(r.cfg.DataDir, source, r.codec)
}

func (r *Runner) instruments(sel Selection) ([]Instrument, error) {
	all, err := LoadInstruments(r.cfg.InstrumentsFile)
	if err != nil {
		return nil, err
	}
	var out []Instrument
	for _, in := range all {
		if !sel.Match(in) {
			continue
		}
		if in.Source != SourceDukascopy && in.Source != SourceExchange {
			r.logger.Warn("unknown source, skipped", "name", in.Name, "source", in.Source)
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

// Fetch updates the archive of every selected instrument, derives opts.Timeframes,
// and writes the run report under the data root. Per-instrument failures are
// recorded in the report and do not stop the run. An unknown exchange or a
// cancelled context does.
func (r *Runner) Fetch(ctx context.Context, opts Options) (*crawl.RunReport, error) {
	list, err := r.instruments(opts.Selection)
	if err != nil {
		return nil, err
	}

	adapters, err := r.openExchanges(list)
	if err != nil {
		return nil, err
	}
	defer func() {
		for name, dp := range adapters {
			if err := dp.Close(); err != nil {
				r.logger.Warn("close exchange", "exchange", name, "error", err)
			}
		}
	}()

	report := crawl.NewRunReport(opts.Start, opts.End)
	r.logger.Info("fetch started", "run_id", report.RunID, "instruments", len(list),
		"start", report.Start, "end", report.End)

	for i, in := range list {
		if i > 0 && r.cfg.InstrumentDelay > 0 {
			if err := r.sleep(ctx, r.cfg.InstrumentDelay); err != nil {
				r.writeReport(report)
				return report, err
			}
		}

		entry := InstrumentResult{Name: in.Name, Source: in.Source}
		var updateErr error
		switch in.Source {
		case SourceDukascopy:
			entry.Update, updateErr = r.updateVendor(ctx, in, opts)
		case SourceExchange:
			entry.Update, updateErr = crawl.NewExchangeUpdater(
				r.storeFor(SourceExchange), r.cfg.ExchangeLimit, r.cfg.DayDelay, r.logger,
			).Update(ctx, adapters[in.Exchange], in.DataSymbol, in.Key(), opts.Start, opts.End)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.writeReport(report)
			return report, ctxErr
		}
		if updateErr != nil {
			r.logger.Error("update failed", "name", in.Name, "key", in.Key(), "error", updateErr)
			report.AddFailure(in.Source, in.Key(), updateErr)
		}

		if len(opts.Timeframes) > 0 {
			d, err := resample.Derive(r.storeFor(in.Source), in.Key(), opts.Timeframes)
			if err != nil {
				r.logger.Error("derive failed", "name", in.Name, "key", in.Key(), "error", err)
				report.AddFailure(in.Source, in.Key(), err)
			} else {
				entry.Derive = &d
			}
		}
		if updateErr == nil {
			report.AddSuccess(in.Key(), entry)
		}
	}

	r.writeReport(report)
	if len(report.Failed) > 0 {
		r.logger.Warn("fetch finished with failures", "failed", len(report.Failed), "reasons", report.FailedSummary())
	} else {
		r.logger.Info("fetch finished", "instruments", len(report.Success))
	}
	return report, nil
}

func (r *Runner) writeReport(report *crawl.RunReport) {
	p, err := report.Write(r.cfg.DataDir)
	if err != nil {
		r.logger.Error("write report", "error", err)
		return
	}
	r.logger.Info("report wrote", "path", p, "success", len(report.Success), "failed", len(report.Failed))
}

// openExchanges builds one adapter per distinct exchange before any download starts.
func (r *Runner) openExchanges(list []Instrument) (map[string]provider.DataProvider, error) {
	adapters := make(map[string]provider.DataProvider)
	for _, in := range list {
		if in.Source != SourceExchange {
			continue
		}
		if _, ok := adapters[in.Exchange]; ok {
			continue
		}
		dp, err := r.newExchange(in.Exchange)
		if err != nil {
			for _, open := range adapters {
				_ = open.Close()
			}
			return nil, fmt.Errorf("instrument %s: %w", in.Name, err)
		}
		adapters[in.Exchange] = dp
	}
	return adapters, nil
}

func (r *Runner) updateVendor(ctx context.Context, in Instrument, opts Options) (crawl.Result, error) {
	cfg := r.cfg.CrawlConfig()
	if in.PriceScale > 0 {
		cfg.PriceScale = in.PriceScale
	}
	o := crawl.NewOrchestrator(r.fetcher, r.storeFor(SourceDukascopy), cfg, r.logger)
	return o.Update(ctx, in.DataSymbol, in.Key(), opts.Start, opts.End)
}

// Derive recomputes opts.Timeframes for every selected instrument without downloading.
func (r *Runner) Derive(ctx context.Context, opts Options) ([]resample.DeriveResult, error) {
	if len(opts.Timeframes) == 0 {
		return nil, errors.New("no timeframes to derive")
	}
	list, err := r.instruments(opts.Selection)
	if err != nil {
		return nil, err
	}
	results := make([]resample.DeriveResult, 0, len(list))
	for i, in := range list {
		if i > 0 && r.cfg.InstrumentDelay > 0 {
			if err := r.sleep(ctx, r.cfg.InstrumentDelay); err != nil {
				return results, err
			}
		}
		d, err := resample.Derive(r.storeFor(in.Source), in.Key(), opts.Timeframes)
		if err != nil {
			return results, fmt.Errorf("derive %s: %w", in.Key(), err)
		}
		r.logger.Info("derived", "source", in.Source, "name", in.Name, "key", in.Key(), "ok", d.OK, "reason", d.Reason, "timeframes", len(d.Derived))
		results = append(results, d)
	}
	return results, nil
}

// Plan writes the instrument to key mapping with cached row counts and, for the
// vendor feed, the number of missing weekdays in [opts.Start, opts.End].
func (r *Runner) Plan(w io.Writer, opts Options) error {
	list, err := r.instruments(opts.Selection)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tNAME\tDATA SYMBOL\tKEY\tCACHED ROWS\tMISSING DAYS")
	for _, in := range list {
		s := r.storeFor(in.Source)
		existing, err := s.Load(in.Key())
		if err != nil {
			return err
		}
		missing := "-"
		if in.Source == SourceDukascopy {
			var have map[model.Day]bool
			if len(existing) > 0 {
				have = existing.Days()
			}
			missing = fmt.Sprint(len(crawl.MissingDays(opts.Start, opts.End, have)))
		}
		symbol := in.DataSymbol
		if in.Source == SourceExchange {
			symbol += " (" + in.Exchange + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", in.Source, in.Name, symbol, in.Key(), len(existing), missing)
	}
	return tw.Flush()
}

// Purge removes archives and derived artifacts of the selected instruments. When
// source is set (dukascopy, ccxt or all) it replaces the -only selection.
func (r *Runner) Purge(sel Selection, source string) (int, error) {
	switch source {
	case "":
	case "all":
		sel.Only = ""
	case SourceDukascopy, SourceExchange:
		sel.Only = source
	default:
		return 0, fmt.Errorf("invalid purge provider %q (dukascopy, ccxt, all)", source)
	}
	list, err := r.instruments(sel)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, in := range list {
		n, err := r.storeFor(in.Source).Purge(in.Key())
		if err != nil {
			return total, err
		}
		if n > 0 {
			r.logger.Info("purged", "source", in.Source, "name", in.Name, "key", in.Key(), "files", n)
		}
		total += n
	}
	r.logger.Info("purge done", "files", total)
	return total, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
