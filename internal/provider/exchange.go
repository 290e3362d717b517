package provider

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ExchangeNamespace is the storage namespace shared by every exchange feed.
const ExchangeNamespace = "ccxt"

// DefaultExchange is used when an instrument row names no exchange.
const DefaultExchange = "binance"

// ErrUnknownExchange is returned for exchanges without an adapter.
var ErrUnknownExchange = errors.New("unknown exchange")

// ExchangeOptions configures exchange adapters.
type ExchangeOptions struct {
	Timeout        time.Duration
	BinanceBaseURL string
	PolygonBaseURL string
	PolygonAPIKey  string
}

// NewExchange creates the adapter for name (binance, polygon).
func NewExchange(name string, opts ExchangeOptions) (DataProvider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "binance":
		return NewBinanceProvider(opts.BinanceBaseURL, opts.Timeout), nil
	case "polygon":
		return NewPolygonProvider(opts.PolygonAPIKey, opts.PolygonBaseURL, opts.Timeout)
	default:
		return nil, fmt.Errorf("%w: %q (options: binance, polygon)", ErrUnknownExchange, name)
	}
}

// ExchangeKey derives the instrument key of an exchange symbol: separators removed,
// uppercased, joined with the uppercased exchange name.
func ExchangeKey(symbol, exchange string) string {
	sym := strings.NewReplacer("/", "", "-", "", "_", "").Replace(strings.TrimSpace(symbol))
	return strings.ToUpper(sym) + "_" + strings.ToUpper(strings.TrimSpace(exchange))
}
