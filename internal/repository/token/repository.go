package token

import (
	"context"
	"time"
)

// Token binds an opaque guest token to the guest it was issued for.
type Token struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	UserName  string    `db:"user_name"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports whether the token is no longer valid at now.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

type Repository interface {
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, token string) (*Token, error)
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes every token expired at now and reports how many
	// were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
