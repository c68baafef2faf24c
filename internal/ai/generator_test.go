package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/domain"
)

func TestHTTPGenerator_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Flow != "chat" || req.Prompt != "hello" {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"output":{"response":"hi"}}`))
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(srv.URL, "secret", time.Second)
	out, err := gen.Generate(context.Background(), Request{Flow: "chat", Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(out) != `{"response":"hi"}` {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestHTTPGenerator_ErrorMapping(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadGateway)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()
	gen := NewHTTPGenerator(srv.URL, "", time.Second)

	if _, err := gen.Generate(context.Background(), Request{Flow: "chat"}); !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure for 502, got %v", err)
	}

	status.Store(http.StatusUnprocessableEntity)
	if _, err := gen.Generate(context.Background(), Request{Flow: "chat"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for 422, got %v", err)
	}
}

func TestHTTPGenerator_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	gen := NewHTTPGenerator(srv.URL, "", time.Second)

	for i := 0; i < 8; i++ {
		_, err := gen.Generate(context.Background(), Request{Flow: "chat"})
		if !errors.Is(err, domain.ErrNetworkFailure) {
			t.Fatalf("call %d: expected ErrNetworkFailure, got %v", i, err)
		}
	}
	if got := hits.Load(); got != 5 {
		t.Fatalf("expected breaker to stop calls after 5 failures, server saw %d", got)
	}
}

func TestHTTPGenerator_NotConfigured(t *testing.T) {
	_, err := NewHTTPGenerator("", "", time.Second).Generate(context.Background(), Request{Flow: "chat"})
	if !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}
}
