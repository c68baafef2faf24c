// Package ai runs structured prompt flows against a hosted model endpoint.
// The model is opaque: each flow renders a prompt, sends it, and validates
// the JSON that comes back.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"storefront/internal/domain"
)

// Media is an inline attachment such as a photo data URI.
type Media struct {
	URL string `json:"url"`
}

// Request is one prompt invocation.
type Request struct {
	Flow   string  `json:"flow"`
	Prompt string  `json:"prompt"`
	Media  []Media `json:"media,omitempty"`
	Format string  `json:"format"`
}

type Generator interface {
	// Generate returns the raw JSON produced for req.
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

type generateResponse struct {
	Output json.RawMessage `json:"output"`
}

// HTTPGenerator posts requests to a prompt service endpoint. Calls go through
// a circuit breaker so a failing endpoint is not hammered.
type HTTPGenerator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[json.RawMessage]
}

func NewHTTPGenerator(endpoint, apiKey string, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		breaker:  gobreaker.NewCircuitBreaker[json.RawMessage](breakerSettings("ai-generator")),
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if g.endpoint == "" {
		return nil, fmt.Errorf("ai endpoint not configured: %w", domain.ErrNetworkFailure)
	}
	out, err := g.breaker.Execute(func() (json.RawMessage, error) {
		return g.do(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("ai %s: %v: %w", req.Flow, err, domain.ErrNetworkFailure)
	}
	return out, err
}

func (g *HTTPGenerator) do(ctx context.Context, req Request) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal ai request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai %s: %v: %w", req.Flow, err, domain.ErrNetworkFailure)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("ai %s: read body: %v: %w", req.Flow, err, domain.ErrNetworkFailure)
	}
	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("ai %s: status %d: %w", req.Flow, resp.StatusCode, domain.ErrValidation)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("ai %s: status %d: %w", req.Flow, resp.StatusCode, domain.ErrNetworkFailure)
	}

	var decoded generateResponse
	if err := json.Unmarshal(data, &decoded); err != nil || len(decoded.Output) == 0 {
		return nil, fmt.Errorf("ai %s: malformed response: %w", req.Flow, domain.ErrValidation)
	}
	return decoded.Output, nil
}

// breakerSettings trips after five consecutive failures and probes again
// after thirty seconds. Validation errors do not count as failures.
func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrValidation) || errors.Is(err, context.Canceled)
		},
	}
}
