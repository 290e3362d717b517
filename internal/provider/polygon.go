package provider

import (
	"time"

	"bars-archive/internal/provider/polygon"
)

// PolygonProvider is a DataProvider implementation backed by the Polygon API.
// It embeds *polygon.Crawler to expose FetchBars and Close.
type PolygonProvider struct {
	*polygon.Crawler
}

// NewPolygonProvider creates a new Polygon-backed DataProvider.
func NewPolygonProvider(apiKey, baseURL string, timeout time.Duration) (*PolygonProvider, error) {
	crawler, err := polygon.NewCrawler(apiKey, baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &PolygonProvider{Crawler: crawler}, nil
}

// GetName returns provider name
func (p *PolygonProvider) GetName() string {
	return "polygon"
}
