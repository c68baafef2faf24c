package token

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
)

const uniqueViolation = "23505"

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres stores guest tokens in the guest_tokens table.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, t Token) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO guest_tokens (token, user_id, user_name, expires_at) VALUES ($1, $2, $3, $4)`,
		t.Token, t.UserID, t.UserName, t.ExpiresAt)
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return domain.ErrAlreadyExists
	case err != nil:
		r.logger.Printf("token repo: create user_id=%s error=%v", t.UserID, err)
		return fmt.Errorf("insert guest token: %w", err)
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, token string) (*Token, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT token, user_id, user_name, expires_at, created_at FROM guest_tokens WHERE token = $1`,
		token)
	if err != nil {
		return nil, fmt.Errorf("query guest token: %w", err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Token])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan guest token: %w", err)
	}
	return &t, nil
}

func (r *postgresRepo) Delete(ctx context.Context, token string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM guest_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete guest token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM guest_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge guest tokens: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		r.logger.Printf("token repo: purged expired count=%d", n)
	}
	return tag.RowsAffected(), nil
}
