package app

import (
	"log/slog"

	"bars-archive/internal/provider"
	"bars-archive/internal/provider/dukascopy"
	"bars-archive/internal/saver"
	"bars-archive/internal/slogx"
)

// ProvideConfig loads config from .env and the environment (for Wire).
func ProvideConfig() (*Config, error) {
	return LoadConfig()
}

// ProvideLogger builds the process logger from config and installs it as default (for Wire).
func ProvideLogger(cfg *Config) *slog.Logger {
	logger := slogx.NewDefault(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return logger
}

// ProvideCodec returns the archive codec for SAVE_FORMAT (for Wire).
func ProvideCodec(cfg *Config) (saver.Codec, error) {
	return saver.NewCodec(cfg.SaveFormat)
}

// ProvideDayFetcher returns the vendor day-file fetcher (for Wire).
func ProvideDayFetcher(cfg *Config) *dukascopy.Fetcher {
	return dukascopy.NewFetcher(cfg.DukascopyBaseURL)
}

// ProvideExchangeFactory returns a factory reading adapter options from cfg at call time (for Wire).
func ProvideExchangeFactory(cfg *Config) ExchangeFactory {
	return func(name string) (provider.DataProvider, error) {
		return CreateExchange(cfg, name)
	}
}
