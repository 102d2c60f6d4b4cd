package fetch

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HTTPClient matches the Do method of *http.Client so tests can substitute
// their own transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RateLimitedClient enforces a minimum interval between requests.
type RateLimitedClient struct {
	underlying HTTPClient
	interval   time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewRateLimitedClient wraps underlying so that requests start at least
// interval apart.
func NewRateLimitedClient(underlying HTTPClient, interval time.Duration) *RateLimitedClient {
	return &RateLimitedClient{underlying: underlying, interval: interval}
}

// Do waits for the rate limiter, or for the request's context to end, and
// then sends the request.
func (c *RateLimitedClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.wait(req.Context()); err != nil {
		return nil, err
	}
	return c.underlying.Do(req)
}

func (c *RateLimitedClient) wait(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	start := c.next
	if start.Before(now) {
		start = now
	}
	c.next = start.Add(c.interval)
	c.mu.Unlock()

	delay := time.Until(start)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
