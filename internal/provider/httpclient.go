package provider

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultHTTPTimeout = 120 * time.Second

var (
	modelTransportOnce sync.Once
	modelTransport     http.RoundTripper
)

// sharedTransport is one keep-alive pool for every model backend. Requests
// are traced, so model calls show up under the dispatch span.
func sharedTransport() http.RoundTripper {
	modelTransportOnce.Do(func() {
		modelTransport = otelhttp.NewTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		})
	})
	return modelTransport
}

// SharedHTTPClient returns a client on the shared model transport. The
// timeout bounds a whole call; callers usually also pass a context deadline.
func SharedHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout, Transport: sharedTransport()}
}
