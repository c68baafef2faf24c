package groupcart

import (
	"context"

	"storefront/internal/domain"
)

// Store persists group cart documents. Membership changes are set operations
// keyed by user id and never need a read first. Item changes are a
// compare-and-swap on Version. Every successful mutation bumps Version.
type Store interface {
	Create(ctx context.Context, cart domain.GroupCart) (*domain.GroupCart, error)
	Get(ctx context.Context, id string) (*domain.GroupCart, error)
	// AddMember appends user unless a member with the same id exists.
	// changed is false for the no-op case.
	AddMember(ctx context.Context, id string, user domain.User) (changed bool, err error)
	// RemoveMember drops the member with userID, if present.
	RemoveMember(ctx context.Context, id, userID string) (changed bool, err error)
	// ReplaceItems writes items only if the stored version still equals
	// expectedVersion, returning domain.ErrVersionConflict otherwise.
	ReplaceItems(ctx context.Context, id string, expectedVersion int64, items []domain.GroupCartItem) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
