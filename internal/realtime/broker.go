// Package realtime fans out "cart changed" notifications to subscribers.
// Notifications carry no payload; subscribers re-read the cart.
package realtime

import (
	"context"
	"sync"
)

// Broker publishes and subscribes to per-cart change notifications.
type Broker interface {
	Publish(ctx context.Context, cartID string) error
	Subscribe(ctx context.Context, cartID string) (*Subscription, error)
}

// Subscription delivers coalesced notifications: if several arrive before the
// reader drains C, the reader sees one.
type Subscription struct {
	ch      chan struct{}
	done    chan struct{}
	once    sync.Once
	release func()
}

func newSubscription(release func()) *Subscription {
	return &Subscription{
		ch:      make(chan struct{}, 1),
		done:    make(chan struct{}),
		release: release,
	}
}

// C yields one value per batch of notifications.
func (s *Subscription) C() <-chan struct{} { return s.ch }

// Done is closed once Close has been called.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.release != nil {
			s.release()
		}
	})
	return nil
}

func (s *Subscription) notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}
