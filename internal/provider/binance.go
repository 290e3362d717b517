package provider

import (
	"time"

	"bars-archive/internal/provider/binance"
)

// BinanceProvider is a DataProvider implementation backed by Binance spot klines.
type BinanceProvider struct {
	*binance.Client
}

// NewBinanceProvider creates a new Binance-backed DataProvider.
func NewBinanceProvider(baseURL string, timeout time.Duration) *BinanceProvider {
	return &BinanceProvider{Client: binance.NewClient(baseURL, timeout)}
}

// GetName returns provider name
func (p *BinanceProvider) GetName() string {
	return "binance"
}
