package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/subcommands"

	"bars-archive/internal/app"
	"bars-archive/internal/resample"
)

// runFlags are shared by every subcommand. Flags left unset keep the env config.
type runFlags struct {
	root        string
	instruments string
	start       string
	end         string
	derive      string
	only        string
	filter      string

	retries         int
	maxFailStreak   int
	dayDelay        time.Duration
	instrumentDelay time.Duration
	timeout         time.Duration
}

func (f *runFlags) setCommon(fs *flag.FlagSet) {
	fs.StringVar(&f.root, "root", "", "data root (default DATA_DIR)")
	fs.StringVar(&f.instruments, "instruments", "", "instruments CSV (default INSTRUMENTS_FILE)")
	fs.StringVar(&f.only, "only", "", "process a single source: dukascopy or ccxt")
	fs.StringVar(&f.filter, "filter", "", "regex matched against the instrument name, e.g. '^(EUR|USD|GBP)'")
}

func (f *runFlags) setSpan(fs *flag.FlagSet) {
	fs.StringVar(&f.start, "start", "", "first day, YYYY-MM-DD (required)")
	fs.StringVar(&f.end, "end", "", "last day, YYYY-MM-DD (required)")
}

func (f *runFlags) setDerive(fs *flag.FlagSet) {
	fs.StringVar(&f.derive, "derive", "5m,1h", "comma-separated timeframes to derive (1m,5m,15m,30m,1h,4h,1d); empty to skip")
	fs.DurationVar(&f.instrumentDelay, "instrument-delay", 0, "pause between instruments (default INSTRUMENT_DELAY)")
}

func (f *runFlags) setFetch(fs *flag.FlagSet) {
	fs.IntVar(&f.retries, "retries", 0, "extra attempts per day (default RETRIES)")
	fs.IntVar(&f.maxFailStreak, "max-fail-streak", 0, "consecutive empty days before stopping an instrument (default MAX_FAIL_STREAK)")
	fs.DurationVar(&f.dayDelay, "day-delay", 0, "pause after each day or exchange poll (default DAY_DELAY)")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-request timeout (default TIMEOUT)")
}

// apply copies explicitly set flags over cfg and revalidates it.
func (f *runFlags) apply(fs *flag.FlagSet, cfg *app.Config) error {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "root":
			cfg.DataDir = f.root
		case "instruments":
			cfg.InstrumentsFile = f.instruments
		case "retries":
			cfg.Retries = f.retries
		case "max-fail-streak":
			cfg.MaxFailStreak = f.maxFailStreak
		case "day-delay":
			cfg.DayDelay = f.dayDelay
		case "instrument-delay":
			cfg.InstrumentDelay = f.instrumentDelay
		case "timeout":
			cfg.Timeout = f.timeout
		}
	})
	return cfg.Validate()
}

// options builds run options. The span is parsed only when requireSpan is set.
func (f *runFlags) options(requireSpan bool) (app.Options, error) {
	var opts app.Options
	if requireSpan {
		if f.start == "" || f.end == "" {
			return opts, errors.New("-start and -end are required")
		}
		start, end, err := app.ParseSpan(f.start, f.end)
		if err != nil {
			return opts, err
		}
		opts.Start, opts.End = start, end
	}

	if f.derive != "" {
		tfs, err := resample.ParseTimeframes(strings.Split(f.derive, ","))
		if err != nil {
			return opts, err
		}
		opts.Timeframes = tfs
	}

	switch f.only {
	case "", app.SourceDukascopy, app.SourceExchange:
		opts.Selection.Only = f.only
	default:
		return opts, fmt.Errorf("invalid -only %q (dukascopy, ccxt)", f.only)
	}
	if f.filter != "" {
		rx, err := regexp.Compile(f.filter)
		if err != nil {
			return opts, fmt.Errorf("invalid -filter: %w", err)
		}
		opts.Selection.Filter = rx
	}
	return opts, nil
}

// setup builds the app, applies flags and returns run options.
func setup(fs *flag.FlagSet, f *runFlags, requireSpan bool) (*App, app.Options, error) {
	opts, err := f.options(requireSpan)
	if err != nil {
		return nil, opts, err
	}
	a, err := InitializeApp()
	if err != nil {
		return nil, opts, err
	}
	if err := f.apply(fs, a.Config); err != nil {
		return nil, opts, err
	}
	return a, opts, nil
}

func fail(msg string, err error) subcommands.ExitStatus {
	slog.Error(msg, "error", err)
	return subcommands.ExitFailure
}

type fetchCmd struct{ flags runFlags }

func (*fetchCmd) Name() string { return "fetch" }

func (*fetchCmd) Synopsis() string {
	return "download missing minute bars, then derive timeframes"
}

func (*fetchCmd) Usage() string {
	return "fetch -start YYYY-MM-DD -end YYYY-MM-DD [-derive 5m,1h] [-only SOURCE] [-filter REGEX]:\n" +
		"  Update the minute archive of every selected instrument and rebuild derived timeframes.\n"
}

func (c *fetchCmd) SetFlags(fs *flag.FlagSet) {
	c.flags.setCommon(fs)
	c.flags.setSpan(fs)
	c.flags.setDerive(fs)
	c.flags.setFetch(fs)
}

func (c *fetchCmd) Execute(ctx context.Context, fs *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, opts, err := setup(fs, &c.flags, true)
	if err != nil {
		return fail("fetch setup", err)
	}
	report, err := a.Runner.Fetch(ctx, opts)
	if err != nil {
		return fail("fetch", err)
	}
	a.Logger.Info("done", "run_id", report.RunID, "success", len(report.Success), "failed", len(report.Failed))
	return subcommands.ExitSuccess
}

type deriveCmd struct{ flags runFlags }

func (*deriveCmd) Name() string { return "derive" }

func (*deriveCmd) Synopsis() string {
	return "rebuild derived timeframes from the minute archive"
}

func (*deriveCmd) Usage() string {
	return "derive [-derive 5m,1h] [-only SOURCE] [-filter REGEX]:\n" +
		"  Recompute derived timeframes without downloading.\n"
}

func (c *deriveCmd) SetFlags(fs *flag.FlagSet) {
	c.flags.setCommon(fs)
	c.flags.setDerive(fs)
}

func (c *deriveCmd) Execute(ctx context.Context, fs *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, opts, err := setup(fs, &c.flags, false)
	if err != nil {
		return fail("derive setup", err)
	}
	results, err := a.Runner.Derive(ctx, opts)
	if err != nil {
		return fail("derive", err)
	}
	a.Logger.Info("done", "instruments", len(results))
	return subcommands.ExitSuccess
}

type planCmd struct{ flags runFlags }

func (*planCmd) Name() string { return "plan" }

func (*planCmd) Synopsis() string {
	return "print instrument keys and missing days without downloading"
}

func (*planCmd) Usage() string {
	return "plan -start YYYY-MM-DD -end YYYY-MM-DD [-only SOURCE] [-filter REGEX]:\n" +
		"  List selected instruments with their storage key, cached rows and missing weekdays.\n"
}

func (c *planCmd) SetFlags(fs *flag.FlagSet) {
	c.flags.setCommon(fs)
	c.flags.setSpan(fs)
}

func (c *planCmd) Execute(_ context.Context, fs *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, opts, err := setup(fs, &c.flags, true)
	if err != nil {
		return fail("plan setup", err)
	}
	if err := a.Runner.Plan(os.Stdout, opts); err != nil {
		return fail("plan", err)
	}
	return subcommands.ExitSuccess
}

type purgeCmd struct {
	flags    runFlags
	provider string
}

func (*purgeCmd) Name() string { return "purge" }

func (*purgeCmd) Synopsis() string {
	return "delete minute archives and derived files"
}

func (*purgeCmd) Usage() string {
	return "purge [-purge-provider dukascopy|ccxt|all] [-only SOURCE] [-filter REGEX]:\n" +
		"  Remove the minute archive and every derived artifact of the selected instruments.\n"
}

func (c *purgeCmd) SetFlags(fs *flag.FlagSet) {
	c.flags.setCommon(fs)
	fs.StringVar(&c.provider, "purge-provider", "", "limit the purge to one source or all (overrides -only)")
}

func (c *purgeCmd) Execute(_ context.Context, fs *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, opts, err := setup(fs, &c.flags, false)
	if err != nil {
		return fail("purge setup", err)
	}
	n, err := a.Runner.Purge(opts.Selection, c.provider)
	if err != nil {
		return fail("purge", err)
	}
	fmt.Printf("purged %d file(s)\n", n)
	return subcommands.ExitSuccess
}
