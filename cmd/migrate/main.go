package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/migrate"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migration steps instead of migrating up")
	status := flag.Bool("status", false, "print the applied schema version and exit")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if *status {
		version, dirty, err := migrate.Status(ctx, pool)
		if err != nil {
			logger.Fatalf("read migration status: %v", err)
		}
		logger.Printf("schema version=%d dirty=%t", version, dirty)
		return
	}

	if *down > 0 {
		if err := migrate.Rollback(ctx, pool, *down); err != nil {
			logger.Fatalf("rollback migrations: %v", err)
		}
		logger.Printf("rolled back %d step(s)", *down)
		return
	}

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	version, _, err := migrate.Status(ctx, pool)
	if err != nil {
		logger.Fatalf("read migration status: %v", err)
	}
	logger.Printf("migrations applied, schema version=%d", version)
}
