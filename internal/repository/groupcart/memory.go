package groupcart

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain"
)

// Memory keeps carts in a map guarded by a mutex. Callers only ever see
// copies.
type Memory struct {
	mu    sync.Mutex
	carts map[string]domain.GroupCart
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		carts: make(map[string]domain.GroupCart),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Create(_ context.Context, cart domain.GroupCart) (*domain.GroupCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := cart.Clone()
	m.carts[cart.ID] = stored
	out := stored.Clone()
	return &out, nil
}

func (m *Memory) Get(_ context.Context, id string) (*domain.GroupCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	out := c.Clone()
	return &out, nil
}

func (m *Memory) AddMember(_ context.Context, id string, user domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return false, domain.ErrCartNotFound
	}
	next, changed := c.WithMember(user)
	if changed {
		m.commit(next)
	}
	return changed, nil
}

func (m *Memory) RemoveMember(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return false, domain.ErrCartNotFound
	}
	next, changed := c.WithoutMember(userID)
	if changed {
		m.commit(next)
	}
	return changed, nil
}

func (m *Memory) ReplaceItems(_ context.Context, id string, expectedVersion int64, items []domain.GroupCartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return domain.ErrCartNotFound
	}
	if c.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	next := c.Clone()
	next.CartItems = domain.GroupCart{CartItems: items}.Clone().CartItems
	m.commit(next)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[id]; !ok {
		return domain.ErrCartNotFound
	}
	delete(m.carts, id)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// commit must be called with mu held.
func (m *Memory) commit(c domain.GroupCart) {
	c.Version++
	c.UpdatedAt = m.now()
	m.carts[c.ID] = c
}
