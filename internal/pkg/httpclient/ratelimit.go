package httpclient

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedTransport delays outgoing requests so they stay under a
// fixed rate. Waiting honors the request context.
type RateLimitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

// NewRateLimitedTransport wraps next; a nil next uses http.DefaultTransport.
func NewRateLimitedTransport(next http.RoundTripper, requestsPerSecond float64, burst int) *RateLimitedTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// NewRateLimited returns a client like New whose requests are limited to
// requestsPerSecond.
func NewRateLimited(timeout time.Duration, requestsPerSecond float64, burst int) *http.Client {
	c := New(timeout)
	c.Transport = NewRateLimitedTransport(c.Transport, requestsPerSecond, burst)
	return c
}
