package dukascopy

import (
	"net"
	"net/http"
	"time"
)

// baseTransportConfig returns the HTTP transport used for day-file downloads.
// Requests are sequential, so a single idle connection is enough.
func baseTransportConfig() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        1,
		MaxIdleConnsPerHost: 1,
	}
}

// newHTTPClient creates an HTTP client. Deadlines come from the request context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: baseTransportConfig(),
	}
}
