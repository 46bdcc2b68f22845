// Package fetch provides the shared HTTP client used by every static
// collector: a bounded timeout, a stable User-Agent, and exponential-backoff
// retry on transient failures.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// UserAgent identifies the engine to upstream sites.
	UserAgent = "family-events/1.0 (github.com/stevib/family-events)"

	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 15 * time.Second

	// maxRetries bounds transient-failure retries per Get. Collection
	// attempts carry their own deadline, so retries stay cheap.
	maxRetries = 2
)

// Client wraps http.Client with retry behavior appropriate for scraping
// unstable external sites.
type Client struct {
	http *http.Client
}

// New creates a Client with the given per-exchange timeout. A non-positive
// timeout uses DefaultTimeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// Get fetches a URL and returns the response body. Network errors and 5xx
// responses are retried with exponential backoff; 4xx responses fail
// immediately. The context bounds the whole operation including retries.
func (c *Client) Get(ctx context.Context, url, accept string) ([]byte, error) {
	var body []byte

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", UserAgent)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", url, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response from %s: %w", url, err)
			}
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("unexpected status code from %s: %d", url, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("unexpected status code from %s: %d", url, resp.StatusCode))
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return body, nil
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}
