package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v5"

	"storefront/internal/domain"
)

const maxEventSize = 1 << 20

// Watch follows a group cart's event stream. C yields every snapshot the
// server sends and a nil once the cart is deleted, then closes. Dropped
// connections are reopened; the server resends the current snapshot on each
// new connection so nothing is missed.
type Watch struct {
	cartID string
	out    chan *domain.GroupCart
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Watch opens the event stream of cartID. The first connection is made
// before Watch returns.
func (c *Client) Watch(ctx context.Context, cartID string) (*Watch, error) {
	ctx, cancel := context.WithCancel(ctx)
	resp, err := c.openStream(ctx, cartID)
	if err != nil {
		cancel()
		return nil, err
	}
	w := &Watch{
		cartID: cartID,
		out:    make(chan *domain.GroupCart),
		cancel: cancel,
	}
	go w.run(ctx, c, resp)
	return w, nil
}

func (w *Watch) C() <-chan *domain.GroupCart { return w.out }

// Close stops the watch. C is closed shortly after.
func (w *Watch) Close() error {
	w.cancel()
	return nil
}

// Err returns why the watch ended early, if it did.
func (w *Watch) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Watch) fail(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

func (w *Watch) run(ctx context.Context, c *Client, resp *http.Response) {
	defer close(w.out)
	defer w.cancel()

	for {
		deleted, err := w.consume(ctx, resp.Body)
		resp.Body.Close()
		if deleted || ctx.Err() != nil {
			return
		}
		c.logger.Printf("client: watch cart_id=%s stream dropped error=%v, reconnecting", w.cartID, err)

		b := backoff.NewExponentialBackOff()
		resp, err = backoff.Retry(ctx, func() (*http.Response, error) {
			return c.openStream(ctx, w.cartID)
		}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(c.retryWindow))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, domain.ErrCartNotFound) {
				c.logger.Printf("client: watch cart_id=%s gone while reconnecting", w.cartID)
				select {
				case w.out <- nil:
				case <-ctx.Done():
				}
				return
			}
			c.logger.Printf("client: watch cart_id=%s giving up error=%v", w.cartID, err)
			w.fail(err)
			return
		}
	}
}

// consume forwards events from one connection until it ends. deleted is true
// when the server reported the cart gone.
func (w *Watch) consume(ctx context.Context, body io.Reader) (deleted bool, err error) {
	err = readEvents(body, func(name string, data []byte) bool {
		var cart *domain.GroupCart
		switch name {
		case "snapshot":
			cart = new(domain.GroupCart)
			if err := json.Unmarshal(data, cart); err != nil {
				return true
			}
		case "deleted":
			deleted = true
		default:
			return true
		}
		select {
		case w.out <- cart:
		case <-ctx.Done():
			return false
		}
		return !deleted
	})
	if err == nil {
		err = io.EOF
	}
	return deleted, err
}

func (c *Client) openStream(ctx context.Context, cartID string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, cartPath(cartID, "/events"), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %v: %w", cartID, err, domain.ErrNetworkFailure)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		err := decodeError(resp, domain.ErrCartNotFound)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	return resp, nil
}

// readEvents parses a text/event-stream body and calls fn once per event.
// It stops when fn returns false or the body ends.
func readEvents(body io.Reader, fn func(name string, data []byte) bool) error {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventSize)

	var (
		name string
		data bytes.Buffer
	)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if data.Len() > 0 || name != "" {
				if name == "" {
					name = "message"
				}
				if !fn(name, data.Bytes()) {
					return nil
				}
			}
			name = ""
			data.Reset()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
