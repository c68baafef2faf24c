package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/importer"
	productrepo "storefront/internal/repository/product"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to catalog CSV (id,name,category,price,stock,tags,description,image,aiHint,deal)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	var repo productrepo.Repository
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatalf("connect db: %v", err)
		}
		defer pool.Close()
		repo = productrepo.NewPostgres(pool, nil)
	case config.BackendMongo:
		database, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			logger.Fatalf("connect mongo: %v", err)
		}
		defer database.Client().Disconnect(context.Background())
		repo = productrepo.NewMongo(database, nil)
	default:
		logger.Fatalf("importer needs STORE_BACKEND=%s or %s, got %q", config.BackendPostgres, config.BackendMongo, cfg.StoreBackend)
	}

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, repo)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after %d products: %v", count, err)
	}

	fmt.Printf("Imported %d products in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
