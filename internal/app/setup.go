package app

import (
	"fmt"
	"log/slog"

	"bars-archive/internal/provider"
)

// CreateExchange builds the adapter for the named exchange from cfg.
// Caller must call dp.Close() when done.
func CreateExchange(cfg *Config, name string) (provider.DataProvider, error) {
	dp, err := provider.NewExchange(name, cfg.ExchangeOptions())
	if err != nil {
		return nil, fmt.Errorf("create exchange: %w", err)
	}
	slog.Debug("wire", "exchange", dp.GetName(), "timeout", cfg.Timeout)
	return dp, nil
}
