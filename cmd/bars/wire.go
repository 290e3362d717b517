//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"bars-archive/internal/app"
	"bars-archive/internal/crawl"
	"bars-archive/internal/provider/dukascopy"
)

// InitializeApp builds App (Config, Logger, Runner) via Wire.
func InitializeApp() (*App, error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideLogger,
		app.ProvideCodec,
		app.ProvideDayFetcher,
		wire.Bind(new(crawl.DayFetcher), new(*dukascopy.Fetcher)),
		app.ProvideExchangeFactory,
		app.NewRunner,
		wire.Struct(new(App), "Config", "Logger", "Runner"),
	)
	return nil, nil
}
