package imagesearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestLookup_ReturnsFirstPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.URL.Query().Get("query") != "leather jacket" || r.URL.Query().Get("per_page") != "1" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("Authorization") != "key" {
			t.Errorf("missing api key")
		}
		_, _ = w.Write([]byte(`{"photos":[{"src":{"medium":"https://images.example/1.jpg"}}]}`))
	}))
	defer srv.Close()

	c := New("key", nil).WithBaseURL(srv.URL)
	if got := c.Lookup(context.Background(), "leather jacket"); got != "https://images.example/1.jpg" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestLookup_FallsBackToPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("query") {
		case "empty":
			_, _ = w.Write([]byte(`{"photos":[]}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	c := New("key", nil).WithBaseURL(srv.URL)
	ctx := context.Background()

	for _, q := range []string{"", "empty", "broken"} {
		if got := c.Lookup(ctx, q); got != Placeholder {
			t.Fatalf("query %q: expected placeholder, got %q", q, got)
		}
	}
	if got := New("", nil).WithBaseURL(srv.URL).Lookup(ctx, "anything"); got != Placeholder {
		t.Fatalf("missing key: expected placeholder, got %q", got)
	}
}

func TestLookup_BreakerStopsCalls(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := New("key", nil).WithBaseURL(srv.URL)

	for i := 0; i < 6; i++ {
		c.Lookup(context.Background(), "shoes")
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("expected 3 upstream calls before the breaker opened, got %d", got)
	}
}
