package groupcart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
)

type postgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresStore{pool: pool, logger: logger}
}

func (s *postgresStore) Create(ctx context.Context, cart domain.GroupCart) (*domain.GroupCart, error) {
	const q = `
INSERT INTO group_carts (id, owner_id, members, member_ids, cart_items, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	if _, err := s.pool.Exec(ctx, q,
		cart.ID,
		cart.OwnerID,
		cart.Members,
		cart.MemberIDs,
		cart.CartItems,
		cart.Version,
		cart.CreatedAt,
		cart.UpdatedAt,
	); err != nil {
		s.logger.Printf("groupcart repo: create id=%s owner_id=%s error=%v", cart.ID, cart.OwnerID, err)
		return nil, err
	}
	s.logger.Printf("groupcart repo: created id=%s owner_id=%s", cart.ID, cart.OwnerID)
	out := cart.Clone()
	return &out, nil
}

func (s *postgresStore) Get(ctx context.Context, id string) (*domain.GroupCart, error) {
	const q = `
SELECT id, owner_id, members, member_ids, cart_items, version, created_at, updated_at
FROM group_carts
WHERE id = $1
`
	var c domain.GroupCart
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&c.ID,
		&c.OwnerID,
		&c.Members,
		&c.MemberIDs,
		&c.CartItems,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		s.logger.Printf("groupcart repo: get id=%s error=%v", id, err)
		return nil, err
	}
	normalize(&c)
	return &c, nil
}

func (s *postgresStore) AddMember(ctx context.Context, id string, user domain.User) (bool, error) {
	const q = `
UPDATE group_carts
SET members = members || jsonb_build_array(jsonb_build_object('id', $2::text, 'name', $3::text)),
    member_ids = array_append(member_ids, $2::text),
    version = version + 1,
    updated_at = now()
WHERE id = $1 AND NOT ($2::text = ANY(member_ids))
`
	tag, err := s.pool.Exec(ctx, q, id, user.ID, user.Name)
	if err != nil {
		s.logger.Printf("groupcart repo: add member id=%s user_id=%s error=%v", id, user.ID, err)
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	return false, s.mustExist(ctx, id)
}

func (s *postgresStore) RemoveMember(ctx context.Context, id, userID string) (bool, error) {
	const q = `
UPDATE group_carts
SET members = COALESCE((
        SELECT jsonb_agg(e.m ORDER BY e.ord)
        FROM jsonb_array_elements(members) WITH ORDINALITY AS e(m, ord)
        WHERE e.m->>'id' <> $2::text
    ), '[]'::jsonb),
    member_ids = array_remove(member_ids, $2::text),
    version = version + 1,
    updated_at = now()
WHERE id = $1 AND $2::text = ANY(member_ids)
`
	tag, err := s.pool.Exec(ctx, q, id, userID)
	if err != nil {
		s.logger.Printf("groupcart repo: remove member id=%s user_id=%s error=%v", id, userID, err)
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	return false, s.mustExist(ctx, id)
}

func (s *postgresStore) ReplaceItems(ctx context.Context, id string, expectedVersion int64, items []domain.GroupCartItem) error {
	const q = `
UPDATE group_carts
SET cart_items = $3,
    version = version + 1,
    updated_at = now()
WHERE id = $1 AND version = $2
`
	if items == nil {
		items = []domain.GroupCartItem{}
	}
	tag, err := s.pool.Exec(ctx, q, id, expectedVersion, items)
	if err != nil {
		s.logger.Printf("groupcart repo: replace items id=%s version=%d error=%v", id, expectedVersion, err)
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if err := s.mustExist(ctx, id); err != nil {
		return err
	}
	return domain.ErrVersionConflict
}

func (s *postgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM group_carts WHERE id = $1`, id)
	if err != nil {
		s.logger.Printf("groupcart repo: delete id=%s error=%v", id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartNotFound
	}
	s.logger.Printf("groupcart repo: deleted id=%s", id)
	return nil
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *postgresStore) mustExist(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM group_carts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check group cart %s: %w", id, err)
	}
	if !exists {
		return domain.ErrCartNotFound
	}
	return nil
}

func normalize(c *domain.GroupCart) {
	if c.Members == nil {
		c.Members = []domain.User{}
	}
	if c.MemberIDs == nil {
		c.MemberIDs = []string{}
	}
	if c.CartItems == nil {
		c.CartItems = []domain.GroupCartItem{}
	}
}
