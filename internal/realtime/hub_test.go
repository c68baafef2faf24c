package realtime

import (
	"context"
	"testing"
	"time"
)

func TestHub_CoalescesNotifications(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	sub, err := hub.Subscribe(ctx, "c1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	for i := 0; i < 5; i++ {
		if err := hub.Publish(ctx, "c1"); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	select {
	case <-sub.C():
	case <-time.After(time.Second):
		t.Fatalf("expected a notification")
	}
	select {
	case <-sub.C():
		t.Fatalf("notifications should have been coalesced")
	default:
	}
}

func TestHub_OnlyNotifiesMatchingCart(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	sub, _ := hub.Subscribe(ctx, "c1")
	defer sub.Close()

	_ = hub.Publish(ctx, "c2")
	select {
	case <-sub.C():
		t.Fatalf("unexpected notification for other cart")
	default:
	}
}

func TestHub_CloseIsIdempotentAndUnregisters(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	sub, _ := hub.Subscribe(ctx, "c1")
	other, _ := hub.Subscribe(ctx, "c1")
	defer other.Close()

	if got := hub.Subscribers("c1"); got != 2 {
		t.Fatalf("expected 2 subscribers, got %d", got)
	}
	_ = sub.Close()
	_ = sub.Close()
	if got := hub.Subscribers("c1"); got != 1 {
		t.Fatalf("expected 1 subscriber after close, got %d", got)
	}
	select {
	case <-sub.Done():
	default:
		t.Fatalf("Done should be closed")
	}
}
