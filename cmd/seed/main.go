package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"storefront/internal/config"
	"storefront/internal/db"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/seed"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	var repo productrepo.Repository
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatalf("connect db: %v", err)
		}
		defer pool.Close()
		repo = productrepo.NewPostgres(pool, logger)
	case config.BackendMongo:
		database, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			logger.Fatalf("connect mongo: %v", err)
		}
		defer database.Client().Disconnect(context.Background())
		repo = productrepo.NewMongo(database, logger)
	default:
		logger.Fatalf("seed needs STORE_BACKEND=%s or %s, got %q", config.BackendPostgres, config.BackendMongo, cfg.StoreBackend)
	}

	n, err := seed.Apply(ctx, repo)
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied products=%d", n)
}
