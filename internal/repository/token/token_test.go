package token

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
	"storefront/internal/migrate"
)

func runRepoSuite(t *testing.T, repo Repository) {
	ctx := context.Background()
	tok := Token{Token: "tok-1", UserID: "u1", UserName: "Ada", ExpiresAt: time.Now().Add(time.Hour).UTC()}

	if err := repo.Create(ctx, tok); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, tok); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "u1" || got.UserName != "Ada" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected token %+v", got)
	}

	if err := repo.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "tok-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := repo.Get(ctx, "tok-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Now().UTC()
	for i, exp := range []time.Time{now.Add(-time.Minute), now.Add(-time.Hour), now.Add(time.Hour)} {
		tok := Token{Token: "purge-" + string(rune('a'+i)), UserID: "u", UserName: "U", ExpiresAt: exp}
		if err := repo.Create(ctx, tok); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	n, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged tokens, got %d", n)
	}
	if _, err := repo.Get(ctx, "purge-c"); err != nil {
		t.Fatalf("live token should survive purge: %v", err)
	}
}

func TestMemoryRepo(t *testing.T) {
	runRepoSuite(t, NewMemory())
}

func TestPostgresRepo(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer pool.Close()
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE guest_tokens`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	runRepoSuite(t, NewPostgres(pool, nil))
}
