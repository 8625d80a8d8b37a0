// Package httpclient collects conventions for the configuration of the HTTP
// clients used to reach the finance API.
//
// It is heavily inspired by github.com/hashicorp/go-cleanhttp.
package httpclient

import (
	"net"
	"net/http"
	"runtime"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	ConnectTimeout = 5 * time.Second
	KeepAlive      = 30 * time.Second
)

// DefaultRoundTripper returns an http.RoundTripper with similar default values
// to http.DefaultTransport, but with idle connections and keepalives disabled.
// The transport is configured to emit OTel spans.
func DefaultRoundTripper() http.RoundTripper {
	transport := defaultPooledTransport()
	transport.DisableKeepAlives = true
	transport.MaxIdleConnsPerHost = -1
	return otelhttp.NewTransport(transport)
}

// DefaultPooledRoundTripper returns an http.RoundTripper with similar default
// values to http.DefaultTransport. Only use this for transports that will be
// re-used for the same host(s), such as a long-lived API gateway client.
func DefaultPooledRoundTripper() http.RoundTripper {
	return otelhttp.NewTransport(defaultPooledTransport())
}

func defaultPooledTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   ConnectTimeout,
			KeepAlive: KeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   runtime.GOMAXPROCS(0) + 1,
	}
}

// DefaultClient returns a new http.Client with a non-shared Transport, idle
// connections disabled, and keepalives disabled.
func DefaultClient() *http.Client {
	return &http.Client{
		Transport: DefaultRoundTripper(),
	}
}

// DefaultPooledClient returns a new http.Client with a pooled Transport. Do not
// use this function for transient clients as it can leak file descriptors over
// time.
func DefaultPooledClient() *http.Client {
	return &http.Client{
		Transport: DefaultPooledRoundTripper(),
	}
}

// Wrap returns a shallow copy of c whose transport is wrap(c.Transport). A nil
// transport is treated as http.DefaultTransport.
func Wrap(c *http.Client, wrap func(http.RoundTripper) http.RoundTripper) *http.Client {
	if c == nil {
		c = DefaultPooledClient()
	}
	next := c.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *c
	wrapped.Transport = wrap(next)
	return &wrapped
}
