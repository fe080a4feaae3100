// Package httpclient builds the outbound HTTP clients used for the store and
// notification APIs.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole request when the caller passes zero.
const DefaultTimeout = 10 * time.Second

// New returns a client with dial and TLS timeouts and an overall deadline.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}
