package httpclient

import (
	"testing"
	"time"
)

func TestResponseCache_Expiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := newResponseCache()
	c.now = func() time.Time { return now }

	c.Set("k", []byte("v"), time.Second)
	if body, ok := c.Get("k"); !ok || string(body) != "v" {
		t.Fatalf("expected hit, got %q %v", body, ok)
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", c.Len())
	}
}

func TestResponseCache_Clear(t *testing.T) {
	c := newResponseCache()
	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, len=%d", c.Len())
	}
}
