package groupcart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/realtime"
)

// Stream is a live view of one group cart. C yields the current snapshot
// first and then a fresh snapshot after each change. A nil snapshot means
// the cart no longer exists. Intermediate states may be skipped when changes
// outpace the reader; the latest state is always delivered.
type Stream struct {
	cartID string
	out    chan *domain.GroupCart
	done   chan struct{}
	once   sync.Once
	sub    *realtime.Subscription
	svc    *Service
}

// Subscribe opens a Stream for cartID. The stream ends when ctx is done or
// Close is called; either way C is closed.
func (s *Service) Subscribe(ctx context.Context, cartID string) (*Stream, error) {
	sub, err := s.broker.Subscribe(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("subscribe group cart %s: %w", cartID, err)
	}
	// Read after subscribing so a change between the two is not lost.
	first, err := s.load(ctx, cartID)
	if err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe group cart %s: %w", cartID, err)
	}

	st := &Stream{
		cartID: cartID,
		out:    make(chan *domain.GroupCart),
		done:   make(chan struct{}),
		sub:    sub,
		svc:    s,
	}
	go st.run(ctx, first)
	return st, nil
}

func (st *Stream) C() <-chan *domain.GroupCart { return st.out }

// Close stops the stream and releases the broker subscription. Safe to call
// more than once.
func (st *Stream) Close() error {
	st.once.Do(func() {
		close(st.done)
		_ = st.sub.Close()
	})
	return nil
}

func (st *Stream) run(ctx context.Context, first *domain.GroupCart) {
	defer close(st.out)
	defer st.sub.Close()

	pending, have := first, true
	var last *domain.GroupCart
	delivered := false

	for {
		var out chan<- *domain.GroupCart
		if have {
			out = st.out
		}
		select {
		case <-ctx.Done():
			return
		case <-st.done:
			return
		case out <- pending:
			last, delivered = pending, true
			have = false
		case <-st.sub.C():
			cart, err := st.svc.load(ctx, st.cartID)
			if err != nil {
				st.svc.logger.Printf("groupcart stream: reload cart_id=%s error=%v", st.cartID, err)
				continue
			}
			if delivered && sameVersion(last, cart) {
				have = false
				continue
			}
			pending, have = cart, true
		}
	}
}

// load reads straight from the store; a missing cart is a nil snapshot.
func (s *Service) load(ctx context.Context, cartID string) (*domain.GroupCart, error) {
	cart, err := s.store.Get(ctx, cartID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil, nil
	}
	return cart, err
}

func sameVersion(a, b *domain.GroupCart) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Version == b.Version
}
