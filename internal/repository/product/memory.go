package product

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain"
)

// Memory is a Repository held in process memory. It backs the memory store
// backend and tests.
type Memory struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewMemory(products ...domain.Product) *Memory {
	m := &Memory{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		m.products[p.ID] = p
	}
	return m
}

func (m *Memory) List(_ context.Context) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) Upsert(_ context.Context, product domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.products[product.ID]; ok {
		product.CreatedAt = existing.CreatedAt
	} else if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	m.products[product.ID] = product
	return &product, nil
}
