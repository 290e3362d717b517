package polygon

import (
	"net/http"
	"time"
)

// baseTransportConfig returns the shared HTTP transport configuration used by Polygon clients.
func baseTransportConfig() *http.Transport {
	return &http.Transport{
		ResponseHeaderTimeout: 2 * time.Minute,
		TLSHandshakeTimeout:   10 * time.Second,
		DisableKeepAlives:     true,
	}
}

// newHTTPClient creates an HTTP client configured for Polygon requests.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: baseTransportConfig(),
		Timeout:   timeout,
	}
}

// NewCrawler constructs a Crawler for apiKey with a dedicated HTTP client.
// An empty baseURL uses DefaultBaseURL.
func NewCrawler(apiKey, baseURL string, timeout time.Duration) (*Crawler, error) {
	if apiKey == "" {
		return nil, errMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Crawler{
		client:     newHTTPClient(timeout),
		apiKey:     apiKey,
		baseURL:    baseURL,
		retryDelay: retryDelay,
	}, nil
}
