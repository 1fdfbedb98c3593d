// Package httpclient builds pooled, TLS-hardened HTTP clients. The
// collector registry uses NewCollectorClient; the notification channels
// build their own http.Client and do not use this package.
package httpclient

import (
	"crypto/tls"
	"net/http"
	"time"
)

// New creates an HTTP client with connection pooling and a TLS 1.2 floor,
// suitable for outbound collector/channel traffic.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// NewCollectorClient returns the client collectors use to poll sources:
// a slightly shorter timeout than notification channels, since collection
// runs on a schedule and should not block a worker slot indefinitely.
func NewCollectorClient() *http.Client {
	return New(15 * time.Second)
}

// NewChannelClient returns a client for alert delivery with a longer
// timeout than the collector client, to tolerate slower webhook endpoints.
// No channel in internal/notify calls it; each builds an http.Client from
// its own configured Timeout.
func NewChannelClient() *http.Client {
	return New(30 * time.Second)
}
