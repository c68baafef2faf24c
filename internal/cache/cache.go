package cache

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// SnapshotCache holds recently read group cart snapshots.
type SnapshotCache interface {
	Get(ctx context.Context, cartID string) (*domain.GroupCart, error)
	Set(ctx context.Context, cartID string, cart *domain.GroupCart) error
	Delete(ctx context.Context, cartID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop never stores anything; every Get is a miss.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.GroupCart, error) { return nil, ErrCacheMiss }

func (Nop) Set(context.Context, string, *domain.GroupCart) error { return nil }

func (Nop) Delete(context.Context, string) error { return nil }
