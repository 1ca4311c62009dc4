package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	clerrors "github.com/skymfe/corelib/internal/errors"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_EmptyBaseURL(t *testing.T) {
	t.Parallel()
	if _, err := New("  "); !errors.Is(err, ErrEmptyBaseURL) {
		t.Fatalf("expected ErrEmptyBaseURL, got %v", err)
	}
}

func TestNew_OptionError(t *testing.T) {
	t.Parallel()
	if _, err := New("http://example.com", WithHTTPTimeout(0)); err == nil {
		t.Fatal("expected option error")
	}
	if _, err := New("http://example.com", WithMaxRetries(-1)); err == nil {
		t.Fatal("expected option error")
	}
}

func TestGet_DecodesJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/users/1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("missing request id")
		}
		_ = json.NewEncoder(w).Encode(user{ID: 1, Name: "A"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	var got user
	if err := c.Get(context.Background(), "/users/1", nil, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != (user{ID: 1, Name: "A"}) {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestGet_CacheDirective(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(user{ID: int(n)})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	dir := &CacheDirective{TTL: time.Minute}
	var a, b user
	if err := c.Get(context.Background(), "/users", dir, &a); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if err := c.Get(context.Background(), "/users", dir, &b); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 || a != b {
		t.Fatalf("expected cached response, hits=%d a=%+v b=%+v", hits, a, b)
	}

	var fresh user
	if err := c.Get(context.Background(), "/users", &CacheDirective{TTL: time.Minute, Bypass: true}, &fresh); err != nil {
		t.Fatalf("bypass Get: %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 || fresh.ID != 2 {
		t.Fatalf("bypass should hit the server, hits=%d fresh=%+v", hits, fresh)
	}

	// The bypassed response refreshed the entry.
	var again user
	_ = c.Get(context.Background(), "/users", dir, &again)
	if again.ID != 2 || atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected refreshed cache entry, got %+v hits=%d", again, hits)
	}
}

func TestGet_NoCacheWithoutTTL(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, `{"id":1}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	for i := 0; i < 3; i++ {
		if err := c.Get(context.Background(), "/users/1", nil, nil); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 round trips, got %d", hits)
	}
}

func TestGet_RetriesRecoverable(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"id":7}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxRetries(2), WithBackoff(time.Millisecond, 2*time.Millisecond))
	var got user
	if err := c.Get(context.Background(), "/users/7", nil, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != 7 || atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected success on second attempt, got %+v hits=%d", got, hits)
	}
}

func TestGet_NoRetryOnIrrecoverable(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxRetries(3), WithBackoff(time.Millisecond, 2*time.Millisecond))
	err := c.Get(context.Background(), "/missing", nil, nil)
	if clerrors.StatusCode(err) != http.StatusNotFound {
		t.Fatalf("expected 404 classified error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("irrecoverable error retried: hits=%d", hits)
	}
}

func TestPost_SendsBodyAndBearer(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected authorization %q", got)
		}
		var in user
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		in.ID = 42
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithTokenProvider(staticToken("tok-1")))
	var out user
	if err := c.Post(context.Background(), "/users", user{Name: "B"}, &out); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if out.ID != 42 || out.Name != "B" {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestBearer_EmptyTokenOmitsHeader(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("authorization header should be absent")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithTokenProvider(staticToken("")))
	if err := c.Put(context.Background(), "/users/1", user{Name: "C"}, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestDelete_StatusError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"conflict"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.Delete(context.Background(), "/users/1", nil)
	if err == nil || !strings.Contains(err.Error(), "409 Conflict") {
		t.Fatalf("expected 409 error, got %v", err)
	}
	if !clerrors.IsIrrecoverable(err) {
		t.Fatal("409 should be irrecoverable")
	}
}

func TestWrite_InvalidatesCache(t *testing.T) {
	t.Parallel()
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			atomic.AddInt32(&gets, 1)
		}
		_, _ = io.WriteString(w, `{"id":1}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithDefaultCacheTTL(time.Minute))
	_ = c.Get(context.Background(), "/users/1", nil, nil)
	_ = c.Get(context.Background(), "/users/1", nil, nil)
	if err := c.Put(context.Background(), "/users/1", user{ID: 1}, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_ = c.Get(context.Background(), "/users/1", nil, nil)
	if atomic.LoadInt32(&gets) != 2 {
		t.Fatalf("expected cache invalidation after write, gets=%d", gets)
	}
}

func TestGet_DecodeError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	var out user
	err := c.Get(context.Background(), "/users/1", nil, &out)
	if err == nil || !clerrors.IsIrrecoverable(err) {
		t.Fatalf("expected irrecoverable decode error, got %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()
	c, err := New("http://example.com")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := c.Get(context.Background(), "/x", nil, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := c.Post(context.Background(), "/x", nil, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
