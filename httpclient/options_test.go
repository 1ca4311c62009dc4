package httpclient

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestWithHTTPTimeoutAndDebugLogging(t *testing.T) {
	c := &Client{http: &http.Client{}}
	if err := WithHTTPTimeout(5 * time.Second)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.http.Timeout != 5*time.Second {
		t.Fatalf("http timeout not set")
	}

	var called bool
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return &http.Response{StatusCode: 200, Body: http.NoBody, Header: make(http.Header)}, nil
	})
	c2, err := New("http://example.com", WithHTTPClient(&http.Client{Transport: rt}), WithDebugLogging(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c2.http.Transport.(*debugTransport); !ok {
		t.Fatalf("expected debugTransport, got %T", c2.http.Transport)
	}

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.com", strings.NewReader(""))
	if _, err := c2.http.Do(req); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !called {
		t.Fatalf("base transport not invoked")
	}
}

func TestNew_AutoEnableDebugViaEnv(t *testing.T) {
	t.Setenv("CORELIB_DEBUG", "true")
	c, err := New("http://example.com", WithHTTPClient(&http.Client{Transport: http.DefaultTransport}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.http.Transport.(*debugTransport); !ok {
		t.Fatalf("expected debugTransport to be installed when CORELIB_DEBUG=true")
	}
}

func TestDebugTransport_ErrorPath(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})
	c, err := New("http://example.com", WithHTTPClient(&http.Client{Transport: rt}), WithDebugLogging(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.com", http.NoBody)
	if _, err := c.http.Do(req); err == nil {
		t.Fatalf("expected error from underlying transport")
	}
}

func TestWithBackoffAndCacheTTL_Validation(t *testing.T) {
	c := &Client{http: &http.Client{}}
	if err := WithBackoff(0, time.Second)(c); err == nil {
		t.Fatal("expected error for zero initial backoff")
	}
	if err := WithBackoff(time.Second, time.Millisecond)(c); err == nil {
		t.Fatal("expected error for max < initial")
	}
	if err := WithDefaultCacheTTL(-time.Second)(c); err == nil {
		t.Fatal("expected error for negative ttl")
	}
	if err := WithHTTPClient(nil)(c); err == nil {
		t.Fatal("expected error for nil http client")
	}
}
