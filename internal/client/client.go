package client

import (
	"bytes"
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

	"storefront/internal/domain"
)

// APIError is a non-2xx answer from the storefront API. It unwraps to the
// domain sentinel matching the status code.
type APIError struct {
	Status int
	Notice domain.Notice
	err    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: status %d: %s", e.Status, e.Notice.Title)
}

func (e *APIError) Unwrap() error { return e.err }

// Client talks to the storefront HTTP API as one guest.
type Client struct {
	baseURL     string
	http        *http.Client
	token       string
	retryWindow time.Duration
	logger      *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. It must not set a
// response timeout if Watch is used.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetryWindow bounds how long Watch keeps reconnecting a dropped event
// stream before giving up.
func WithRetryWindow(d time.Duration) Option {
	return func(c *Client) { c.retryWindow = d }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithToken authenticates requests as the guest owning token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{},
		retryWindow: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	return c
}

// Token returns the guest token requests are sent with.
func (c *Client) Token() string { return c.token }

type Product struct {
	domain.Product
	TrendingScore int `json:"trendingScore"`
}

type ProductFilter struct {
	Category string
	Tag      string
	Query    string
}

type cartEnvelope struct {
	Cart       *domain.GroupCart `json:"cart"`
	InviteLink string            `json:"inviteLink"`
	Notice     *domain.Notice    `json:"notice"`
}

// IssueGuest creates a guest identity and makes it the client's identity.
func (c *Client) IssueGuest(ctx context.Context, name string) (domain.User, error) {
	var out struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/guests", map[string]string{"name": name}, &out, domain.ErrNotFound); err != nil {
		return domain.User{}, err
	}
	c.token = out.Token
	return out.User, nil
}

// Me returns the guest the client's token belongs to.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var out struct {
		User domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/guests/me", nil, &out, domain.ErrNotFound); err != nil {
		return domain.User{}, err
	}
	return out.User, nil
}

func (c *Client) Products(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	path := "/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out, domain.ErrNotFound); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// CreateGroupCart starts a cart owned by the client's guest and returns it
// with its invite link.
func (c *Client) CreateGroupCart(ctx context.Context) (*domain.GroupCart, string, error) {
	var out cartEnvelope
	if err := c.do(ctx, http.MethodPost, "/group-carts", nil, &out, domain.ErrCartNotFound); err != nil {
		return nil, "", err
	}
	return out.Cart, out.InviteLink, nil
}

func (c *Client) GetGroupCart(ctx context.Context, cartID string) (*domain.GroupCart, string, error) {
	var out cartEnvelope
	if err := c.do(ctx, http.MethodGet, cartPath(cartID, ""), nil, &out, domain.ErrCartNotFound); err != nil {
		return nil, "", err
	}
	return out.Cart, out.InviteLink, nil
}

func (c *Client) JoinGroupCart(ctx context.Context, cartID string) (*domain.GroupCart, error) {
	var out cartEnvelope
	if err := c.do(ctx, http.MethodPost, cartPath(cartID, "/members"), nil, &out, domain.ErrCartNotFound); err != nil {
		return nil, err
	}
	return out.Cart, nil
}

func (c *Client) LeaveGroupCart(ctx context.Context, cartID string) error {
	return c.do(ctx, http.MethodPost, cartPath(cartID, "/leave"), nil, nil, domain.ErrCartNotFound)
}

func (c *Client) AddItem(ctx context.Context, cartID, productID string) (*domain.GroupCart, error) {
	var out cartEnvelope
	body := map[string]string{"productId": productID}
	if err := c.do(ctx, http.MethodPost, cartPath(cartID, "/items"), body, &out, domain.ErrNotFound); err != nil {
		return nil, err
	}
	return out.Cart, nil
}

func (c *Client) DeleteGroupCart(ctx context.Context, cartID string) error {
	return c.do(ctx, http.MethodDelete, cartPath(cartID, ""), nil, nil, domain.ErrCartNotFound)
}

func cartPath(cartID, suffix string) string {
	return "/group-carts/" + url.PathEscape(cartID) + suffix
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends a JSON request and decodes a JSON answer into out. notFound is
// the sentinel a 404 unwraps to.
func (c *Client) do(ctx context.Context, method, path string, body, out any, notFound error) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, domain.ErrNetworkFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp, notFound)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %v: %w", method, path, err, domain.ErrValidation)
	}
	return nil
}

func decodeError(resp *http.Response, notFound error) error {
	var body struct {
		Error domain.Notice `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &body)
	return &APIError{Status: resp.StatusCode, Notice: body.Error, err: sentinelFor(resp.StatusCode, notFound)}
}

func sentinelFor(status int, notFound error) error {
	switch {
	case status == http.StatusNotFound:
		return notFound
	case status == http.StatusBadRequest:
		return domain.ErrValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrForbidden
	case status == http.StatusConflict:
		return domain.ErrTransactionAborted
	case status == http.StatusTooManyRequests, status >= 500:
		return domain.ErrNetworkFailure
	default:
		return errors.New(http.StatusText(status))
	}
}
