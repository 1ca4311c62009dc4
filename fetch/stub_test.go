package fetch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skymfe/corelib/httpclient"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// stubCall records one invocation of the stub handle.
type stubCall struct {
	Method string
	Target string
	Cache  *httpclient.CacheDirective
	Body   any
}

// reply scripts the outcome of one call.
type reply struct {
	value any
	err   error
	delay time.Duration
	panic any
}

// stubHandle is a Handle whose replies are chosen per call index.
type stubHandle struct {
	mu    sync.Mutex
	calls []stubCall
	next  func(n int, c stubCall) reply
}

func newStub(next func(n int, c stubCall) reply) *stubHandle {
	return &stubHandle{next: next}
}

func (s *stubHandle) do(ctx context.Context, c stubCall, out any) error {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, c)
	next := s.next
	s.mu.Unlock()

	r := reply{}
	if next != nil {
		r = next(n, c)
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.panic != nil {
		panic(r.panic)
	}
	if r.err != nil {
		return r.err
	}
	if out != nil && r.value != nil {
		b, err := json.Marshal(r.value)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, out)
	}
	return nil
}

func (s *stubHandle) Get(ctx context.Context, target string, cache *httpclient.CacheDirective, out any) error {
	return s.do(ctx, stubCall{Method: "GET", Target: target, Cache: cache}, out)
}

func (s *stubHandle) Post(ctx context.Context, target string, body, out any) error {
	return s.do(ctx, stubCall{Method: "POST", Target: target, Body: body}, out)
}

func (s *stubHandle) Put(ctx context.Context, target string, body, out any) error {
	return s.do(ctx, stubCall{Method: "PUT", Target: target, Body: body}, out)
}

func (s *stubHandle) Delete(ctx context.Context, target string, out any) error {
	return s.do(ctx, stubCall{Method: "DELETE", Target: target}, out)
}

func (s *stubHandle) Calls() []stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stubCall(nil), s.calls...)
}

func (s *stubHandle) waitCalls(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.Calls()) >= n }, time.Second, time.Millisecond)
}

// newStubProvider returns a provider whose every handle is stub.
func newStubProvider(t *testing.T, stub *stubHandle) *Provider {
	t.Helper()
	p := NewProvider("http://stub.local", WithHandleFactory(func(string) (Handle, error) {
		return stub, nil
	}))
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func waitIdle(t *testing.T, tr interface{ Wait(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Wait(ctx))
}
