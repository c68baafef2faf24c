package session

import (
	"context"
	"fmt"

	"storefront/internal/client"
	"storefront/internal/domain"
)

const (
	guestTokenKey = "guestToken"
	guestIDKey    = "guestId"
	guestNameKey  = "guestName"
)

type httpBackend struct {
	c *client.Client
}

// NewHTTPBackend runs session operations against the storefront API.
func NewHTTPBackend(c *client.Client) Backend {
	return httpBackend{c: c}
}

func (b httpBackend) Create(ctx context.Context) (*domain.GroupCart, error) {
	cart, _, err := b.c.CreateGroupCart(ctx)
	return cart, err
}

func (b httpBackend) Join(ctx context.Context, cartID string) (*domain.GroupCart, error) {
	return b.c.JoinGroupCart(ctx, cartID)
}

func (b httpBackend) Leave(ctx context.Context, cartID string) error {
	return b.c.LeaveGroupCart(ctx, cartID)
}

func (b httpBackend) AddItem(ctx context.Context, cartID, productID string) (*domain.GroupCart, error) {
	return b.c.AddItem(ctx, cartID, productID)
}

func (b httpBackend) Subscribe(ctx context.Context, cartID string) (Feed, error) {
	w, err := b.c.Watch(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// SaveGuest stores the guest identity next to the session state. The active
// cart of a previous identity is forgotten.
func SaveGuest(kv KV, user domain.User, token string) error {
	if err := kv.Delete(activeCartKey); err != nil {
		return fmt.Errorf("save guest: %w", err)
	}
	for k, v := range map[string]string{guestTokenKey: token, guestIDKey: user.ID, guestNameKey: user.Name} {
		if err := kv.Set(k, v); err != nil {
			return fmt.Errorf("save guest: %w", err)
		}
	}
	return nil
}

// LoadGuest returns the stored guest identity. ok is false when none was
// saved.
func LoadGuest(kv KV) (user domain.User, token string, ok bool, err error) {
	token, ok, err = kv.Get(guestTokenKey)
	if err != nil || !ok || token == "" {
		return domain.User{}, "", false, err
	}
	if user.ID, _, err = kv.Get(guestIDKey); err != nil {
		return domain.User{}, "", false, err
	}
	if user.Name, _, err = kv.Get(guestNameKey); err != nil {
		return domain.User{}, "", false, err
	}
	return user, token, true, nil
}
