// Package imagesearch finds a stock photo URL for a free-text query.
package imagesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Placeholder is returned whenever no image can be found.
const Placeholder = "https://placehold.co/400x400.png"

const defaultBaseURL = "https://api.pexels.com/v1"

type searchResponse struct {
	Photos []struct {
		Src struct {
			Medium string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

// Client queries the Pexels search API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	logger  *log.Logger
}

func New(apiKey string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 5 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "pexels",
			MaxRequests: 1,
			Timeout:     time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errNoResults)
			},
		}),
		logger: logger,
	}
}

// WithBaseURL points the client at another API root.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// Lookup returns the first matching photo, or Placeholder on any failure.
func (c *Client) Lookup(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" || c.apiKey == "" {
		return Placeholder
	}
	imageURL, err := c.breaker.Execute(func() (string, error) {
		return c.search(ctx, query)
	})
	if err != nil {
		if !errors.Is(err, errNoResults) {
			c.logger.Printf("imagesearch: query=%q error=%v", query, err)
		}
		return Placeholder
	}
	return imageURL
}

var errNoResults = errors.New("no results")

func (c *Client) search(ctx context.Context, query string) (string, error) {
	endpoint := c.baseURL + "/search?" + url.Values{"query": {query}, "per_page": {"1"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pexels status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode pexels response: %w", err)
	}
	if len(body.Photos) == 0 || body.Photos[0].Src.Medium == "" {
		return "", errNoResults
	}
	return body.Photos[0].Src.Medium, nil
}
