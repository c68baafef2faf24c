package realtime

import (
	"context"
	"sync"
)

// Hub is an in-process Broker. It only reaches subscribers in the same
// process.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

func (h *Hub) Publish(_ context.Context, cartID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[cartID] {
		sub.notify()
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, cartID string) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(func() { h.remove(cartID, sub) })

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[cartID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[cartID] = set
	}
	set[sub] = struct{}{}
	return sub, nil
}

// Subscribers reports how many live subscriptions exist for cartID.
func (h *Hub) Subscribers(cartID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[cartID])
}

func (h *Hub) remove(cartID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[cartID]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, cartID)
	}
}
