// Package events publishes group cart domain events for downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeCreated      = "group_cart.created"
	TypeMemberJoined = "group_cart.member_joined"
	TypeMemberLeft   = "group_cart.member_left"
	TypeItemAdded    = "group_cart.item_added"
	TypeDeleted      = "group_cart.deleted"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	CartID     string    `json:"cartId"`
	UserID     string    `json:"userId,omitempty"`
	ProductID  string    `json:"productId,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType, cartID, userID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		CartID:     cartID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
