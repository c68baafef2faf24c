package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storefront/internal/ai"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/imagesearch"
	"storefront/internal/realtime"
	groupcartrepo "storefront/internal/repository/groupcart"
	productrepo "storefront/internal/repository/product"
	tokenrepo "storefront/internal/repository/token"
	"storefront/internal/seed"
	groupcartsvc "storefront/internal/service/groupcart"
	guestsvc "storefront/internal/service/guest"
	productsvc "storefront/internal/service/product"
)

type stores struct {
	products   productrepo.Repository
	groupCarts groupcartrepo.Store
	tokens     tokenrepo.Repository
	close      func()
}

func openStores(ctx context.Context, cfg config.Config, logger *log.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			return nil, fmt.Errorf("connect to db: %w", err)
		}
		return &stores{
			products:   productrepo.NewPostgres(pool, logger),
			groupCarts: groupcartrepo.NewPostgres(pool, logger),
			tokens:     tokenrepo.NewPostgres(pool, logger),
			close:      pool.Close,
		}, nil
	case config.BackendMongo:
		database, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		carts := groupcartrepo.NewMongo(database, logger)
		if err := carts.CreateIndexes(ctx); err != nil {
			_ = database.Client().Disconnect(ctx)
			return nil, fmt.Errorf("create group cart indexes: %w", err)
		}
		return &stores{
			products:   productrepo.NewMongo(database, logger),
			groupCarts: carts,
			tokens:     tokenrepo.NewMemory(),
			close:      func() { _ = database.Client().Disconnect(context.Background()) },
		}, nil
	case config.BackendMemory:
		logger.Printf("using in-memory stores seeded with the demo catalog")
		return &stores{
			products:   productrepo.NewMemory(seed.Products()...),
			groupCarts: groupcartrepo.NewMemory(),
			tokens:     tokenrepo.NewMemory(),
			close:      func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func purgeGuestTokens(ctx context.Context, guests *guestsvc.Service, every time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := guests.Purge(ctx); err != nil {
				logger.Printf("purge guest tokens: %v", err)
			}
		}
	}
}

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}
	defer st.close()

	opts := groupcartsvc.Options{
		Logger:       logger,
		PublicOrigin: cfg.PublicOrigin,
		MaxAttempts:  cfg.AddItemMaxAttempts,
	}
	if cfg.RedisAddr != "" {
		rdb, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		defer rdb.Close()
		opts.Cache = cache.NewRedisCache(rdb)
		opts.Broker = realtime.NewRedisBroker(rdb, logger)
		logger.Printf("redis snapshot cache and change broker enabled addr=%s", cfg.RedisAddr)
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		opts.Events = publisher
		logger.Printf("kafka event publishing enabled topic=%s", cfg.KafkaTopic)
	}

	productService := productsvc.New(st.products)
	groupCartService := groupcartsvc.New(st.groupCarts, productService, opts)
	guestService := guestsvc.New(st.tokens)
	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeGuestTokens(purgeCtx, guestService, time.Hour, logger)

	deps := httpserver.Deps{
		GroupCarts:      groupCartService,
		Products:        productService,
		Guests:          guestService,
		Ready:           groupCartService.Ping,
		CORSOrigins:     cfg.CORSOrigins,
		AIRatePerSecond: float64(cfg.AIRatePerSecond),
	}
	if cfg.AIEndpoint != "" {
		deps.Flows = ai.NewFlows(ai.NewHTTPGenerator(cfg.AIEndpoint, cfg.AIAPIKey, cfg.AITimeout))
	} else {
		logger.Printf("AI_ENDPOINT not set, /ai routes disabled")
	}
	deps.Images = imagesearch.New(cfg.PexelsAPIKey, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, deps)
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s backend=%s", cfg.HTTPAddr, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
