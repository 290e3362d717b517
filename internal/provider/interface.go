package provider

import (
	"context"
	"time"

	"bars-archive/internal/model"
)

// DataProvider is the exchange-feed capability used by the exchange updater.
// Implementations wrap one exchange API and own their connections.
type DataProvider interface {
	// FetchBars returns up to limit consecutive 1m bars starting at since, ascending.
	// An empty result means no more data.
	FetchBars(ctx context.Context, symbol string, since time.Time, limit int) ([]model.Bar, error)

	// GetName returns the exchange name.
	GetName() string

	// Close releases connections.
	Close() error
}
