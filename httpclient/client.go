package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	clerrors "github.com/skymfe/corelib/internal/errors"
)

// ErrClosed is returned by every request method after Close.
var ErrClosed = errors.New("httpclient: client closed")

// ErrEmptyBaseURL is returned by New when no base endpoint is given.
var ErrEmptyBaseURL = errors.New("httpclient: baseURL cannot be empty")

// TokenProvider supplies the bearer token attached to outgoing requests.
// An empty token sends no Authorization header.
type TokenProvider interface {
	Token() string
}

// CacheDirective controls response caching for a single GET.
// A nil directive falls back to the client's default TTL.
type CacheDirective struct {
	// TTL is how long a successful response body is kept. Zero disables
	// storing unless the client has a default TTL.
	TTL time.Duration
	// Bypass skips the cache lookup but still stores the fresh response.
	Bypass bool
	// Key overrides the cache key; the request target is used when empty.
	Key string
}

// Client is a long-lived JSON HTTP client bound to one base endpoint. It is
// safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	rest    *resty.Client
	tokens  TokenProvider
	logger  zerolog.Logger

	cache      *responseCache
	defaultTTL time.Duration
	inflight   singleflight.Group

	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	closed uint32
}

// New constructs a Client for baseURL. Options are applied before the bearer
// transport is installed, so transport options sit underneath it.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrEmptyBaseURL
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 30 * time.Second},
		logger:      zerolog.Nop(),
		cache:       newResponseCache(),
		baseBackoff: 100 * time.Millisecond,
		maxBackoff:  2 * time.Second,
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.wrapTransportWithToken()

	c.rest = resty.NewWithClient(c.http).
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{c.logger})

	return c, nil
}

// BaseURL returns the endpoint the client is bound to.
func (c *Client) BaseURL() string { return c.baseURL }

// wrapTransportWithToken installs the bearer transport when a token provider
// is configured.
func (c *Client) wrapTransportWithToken() {
	if c.tokens == nil {
		return
	}
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http.Transport = &bearerTransport{base: base, tokens: c.tokens}
}

// bearerTransport adds "Authorization: Bearer <token>" to every request.
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenProvider
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.tokens.Token()
	if token == "" {
		return t.base.RoundTrip(req)
	}
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(cloned)
}

// Close drops cached responses and idle connections. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closed, 0, 1) {
		return nil
	}
	c.cache.Clear()
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) isClosed() bool { return atomic.LoadUint32(&c.closed) == 1 }

// --------------------------------------------------------------------
// Verbs
// --------------------------------------------------------------------

// Get fetches target and decodes the JSON body into out. Concurrent identical
// GETs share one round trip, and recoverable failures are retried.
func (c *Client) Get(ctx context.Context, target string, cache *CacheDirective, out any) error {
	if c.isClosed() {
		return ErrClosed
	}

	key := target
	ttl := c.defaultTTL
	bypass := false
	if cache != nil {
		if cache.Key != "" {
			key = cache.Key
		}
		if cache.TTL > 0 {
			ttl = cache.TTL
		}
		bypass = cache.Bypass
	}

	if ttl > 0 && !bypass {
		if body, ok := c.cache.Get(key); ok {
			cacheHitsTotal.Inc()
			return decodeInto(http.MethodGet, target, body, out)
		}
	}

	v, err, shared := c.inflight.Do(key, func() (interface{}, error) {
		return c.fetchWithRetry(ctx, target)
	})
	if err != nil {
		return err
	}
	if shared {
		sharedRequestsTotal.Inc()
	}
	body := v.([]byte)
	if ttl > 0 {
		c.cache.Set(key, body, ttl)
	}
	return decodeInto(http.MethodGet, target, body, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, target string, body, out any) error {
	return c.write(ctx, http.MethodPost, target, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, target string, body, out any) error {
	return c.write(ctx, http.MethodPut, target, body, out)
}

// Delete removes target and decodes the response (if any) into out.
func (c *Client) Delete(ctx context.Context, target string, out any) error {
	return c.write(ctx, http.MethodDelete, target, nil, out)
}

func (c *Client) write(ctx context.Context, method, target string, body, out any) error {
	if c.isClosed() {
		return ErrClosed
	}
	raw, err := c.execute(ctx, method, target, body)
	if err != nil {
		return err
	}
	c.invalidate(target)
	return decodeInto(method, target, raw, out)
}

// invalidate drops the cached GET for target after a successful write.
func (c *Client) invalidate(target string) {
	c.cache.Delete(target)
}

func (c *Client) fetchWithRetry(ctx context.Context, target string) ([]byte, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.baseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = c.maxBackoff
	exp.MaxElapsedTime = 0
	exp.Reset()

	var policy backoff.BackOff = backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx)

	attempt := 0
	return backoff.RetryWithData(func() ([]byte, error) {
		if attempt > 0 {
			retriesTotal.Inc()
		}
		attempt++
		body, err := c.execute(ctx, http.MethodGet, target, nil)
		if err != nil && clerrors.IsIrrecoverable(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}, policy)
}

// execute performs a single round trip and returns the raw body of a 2xx
// response.
func (c *Client) execute(ctx context.Context, method, target string, body any) ([]byte, error) {
	start := time.Now()
	req := c.rest.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, target)
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(method, "network_error").Inc()
		c.logger.Debug().Err(err).Str("method", method).Str("target", target).Msg("request failed")
		return nil, clerrors.NewNetworkError(method, target, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		requestsTotal.WithLabelValues(method, "http_error").Inc()
		c.logger.Debug().Str("method", method).Str("target", target).Int("status_code", resp.StatusCode()).Msg("unexpected status")
		return nil, clerrors.NewHTTPError(method, target, resp.StatusCode(), resp.String())
	}

	requestsTotal.WithLabelValues(method, "ok").Inc()
	return resp.Body(), nil
}

func decodeInto(method, target string, body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return clerrors.NewDecodeError(method, target, err)
	}
	return nil
}

// restyLogger routes resty's internal warnings into zerolog.
type restyLogger struct{ l zerolog.Logger }

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Error().Msgf(format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Warn().Msgf(format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Debug().Msgf(format, v...) }
