package httpclient

// Functional options applied by New. Transport-related options install
// their wrappers underneath the bearer transport.

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithHTTPTimeout sets the underlying http.Client Timeout.
//
// Prefer per-request context deadlines where possible; this timeout bounds
// the total time spent on a single round trip. The value must be > 0.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithHTTPClient replaces the underlying *http.Client. Its Transport is
// wrapped, not replaced.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.http = hc
		return nil
	}
}

// WithDebugLogging wraps the client's transport so each request/response is
// dumped to the debug log when enabled is true. Do not enable in production:
// dumps include headers and bodies.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			if _, already := c.http.Transport.(*debugTransport); !already {
				c.http.Transport = &debugTransport{base: c.http.Transport}
			}
		}
		return nil
	}
}

// WithTokenProvider attaches a bearer token to every request.
func WithTokenProvider(p TokenProvider) Option {
	return func(c *Client) error {
		c.tokens = p
		return nil
	}
}

// WithMaxRetries bounds how many times a recoverable GET failure is retried.
// Writes are never retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) error {
		if n < 0 {
			return fmt.Errorf("max retries must be >= 0")
		}
		c.maxRetries = n
		return nil
	}
}

// WithBackoff sets the initial and maximum retry intervals.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) error {
		if initial <= 0 || max < initial {
			return fmt.Errorf("invalid backoff: initial=%s max=%s", initial, max)
		}
		c.baseBackoff = initial
		c.maxBackoff = max
		return nil
	}
}

// WithDefaultCacheTTL caches every successful GET for ttl unless the
// request's directive says otherwise.
func WithDefaultCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		if ttl < 0 {
			return fmt.Errorf("cache ttl must be >= 0")
		}
		c.defaultTTL = ttl
		return nil
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}
