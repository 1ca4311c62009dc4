package fetch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/skymfe/corelib/httpclient"
	"github.com/skymfe/corelib/internal/shardqueue"
)

// Handle is the client surface the primitives call into. Responses are
// decoded into out. *httpclient.Client implements it.
type Handle interface {
	Get(ctx context.Context, target string, cache *httpclient.CacheDirective, out any) error
	Post(ctx context.Context, target string, body, out any) error
	Put(ctx context.Context, target string, body, out any) error
	Delete(ctx context.Context, target string, out any) error
}

// HandleFactory builds the handle for a base endpoint. It is called at most
// once per endpoint per Provider.
type HandleFactory func(baseURL string) (Handle, error)

// Provider owns the shared handles and the completion loop for a scope. Close
// it when the scope ends; late completions are then discarded.
type Provider struct {
	baseURL    string
	factory    HandleFactory
	clientOpts []httpclient.Option
	logger     zerolog.Logger
	loopCfg    shardqueue.Config

	mu      sync.Mutex
	handles map[string]Handle

	loop   *shardqueue.ShardExecutor
	ctx    context.Context
	cancel context.CancelFunc
	closed uint32
}

// ProviderOption configures a Provider in NewProvider.
type ProviderOption func(*Provider)

// WithHandleFactory replaces the default httpclient-backed factory.
func WithHandleFactory(f HandleFactory) ProviderOption {
	return func(p *Provider) { p.factory = f }
}

// WithClientOptions passes options to httpclient.New when the default
// factory is used.
func WithClientOptions(opts ...httpclient.Option) ProviderOption {
	return func(p *Provider) { p.clientOpts = append(p.clientOpts, opts...) }
}

// WithLogger sets the logger for dispatch and drop diagnostics.
func WithLogger(l zerolog.Logger) ProviderOption {
	return func(p *Provider) { p.logger = l }
}

// WithLoopShards sets how many completion workers the provider runs.
func WithLoopShards(n int) ProviderOption {
	return func(p *Provider) { p.loopCfg.Shards = n }
}

// NewProvider creates a scope bound to baseURL. Handles are built lazily.
func NewProvider(baseURL string, opts ...ProviderOption) *Provider {
	p := &Provider{
		baseURL: baseURL,
		handles: make(map[string]Handle),
		logger:  zerolog.Nop(),
		loopCfg: shardqueue.Config{Shards: 4, QueueSize: 1024, EnqueueTimeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.factory == nil {
		p.factory = p.defaultFactory
	}

	logger := p.logger.With().Str("component", "fetch-loop").Logger()
	p.loopCfg.Logger = &logger
	p.loopCfg.ErrorHandler = func(err error) {
		// Reached when a subscriber panics inside a completion job.
		p.logger.Error().Err(err).Msg("completion handler failed")
	}
	p.loop = shardqueue.NewShardExecutor(p.loopCfg)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p
}

func (p *Provider) defaultFactory(baseURL string) (Handle, error) {
	opts := append([]httpclient.Option{httpclient.WithLogger(p.logger)}, p.clientOpts...)
	return httpclient.New(baseURL, opts...)
}

// BaseURL returns the provider's default endpoint.
func (p *Provider) BaseURL() string { return p.baseURL }

// Handle returns the shared handle for the provider's default endpoint.
func (p *Provider) Handle() (Handle, error) {
	if p == nil {
		return nil, &MissingContextError{Reason: "provider is nil"}
	}
	return p.HandleFor(p.baseURL)
}

// HandleFor returns the shared handle for baseURL, building it on first use.
// Every later call with the same endpoint returns the identical instance.
func (p *Provider) HandleFor(baseURL string) (Handle, error) {
	if p == nil {
		return nil, &MissingContextError{Reason: "provider is nil"}
	}
	if p.isClosed() {
		return nil, &MissingContextError{Reason: "provider is closed"}
	}

	key := strings.TrimRight(baseURL, "/")
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.handles[key]; ok {
		return h, nil
	}
	h, err := p.factory(baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: build handle for %q: %w", baseURL, err)
	}
	p.handles[key] = h
	p.logger.Debug().Str("base_url", key).Msg("handle created")
	return h, nil
}

// Close ends the scope: in-flight requests are canceled, pending completions
// are discarded, and handles implementing io.Closer are closed. Safe to call
// multiple times.
func (p *Provider) Close() error {
	if p == nil || !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return nil
	}
	p.cancel()
	p.loop.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for key, h := range p.handles {
		if c, ok := h.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(p.handles, key)
	}
	return firstErr
}

func (p *Provider) isClosed() bool { return atomic.LoadUint32(&p.closed) == 1 }
