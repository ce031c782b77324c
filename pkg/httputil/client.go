// Package httputil provides the pooled HTTP client used for audit record
// delivery and the concurrency limiter that backs the gateway's
// admission control.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseBytes caps how much of a collector's response is read. Audit
// collectors are expected to answer with short acknowledgements; anything
// larger is discarded.
const MaxResponseBytes = 1 * 1024 * 1024

// One transport for the process. Record delivery is frequent and targets
// few hosts, so connection reuse matters more than per-call tuning.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          64,
	MaxIdleConnsPerHost:   8,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

var (
	deliveryClients sync.Map // time.Duration -> *http.Client
)

// DeliveryClient returns a client with the given total request timeout,
// sharing the process-wide connection pool. Clients are cached per
// timeout, so calling this on every append is cheap.
func DeliveryClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if c, ok := deliveryClients.Load(timeout); ok {
		return c.(*http.Client)
	}
	c := &http.Client{Timeout: timeout, Transport: sharedTransport}
	actual, _ := deliveryClients.LoadOrStore(timeout, c)
	return actual.(*http.Client)
}

// ReadBody reads a response body up to MaxResponseBytes.
func ReadBody(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, MaxResponseBytes))
}

// DrainAndClose discards any unread response body and closes it so the
// underlying connection goes back to the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseBytes))
		_ = body.Close()
	}
}
