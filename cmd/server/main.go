package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/shop-order-service/internal/adapter/bus"
	"github.com/example/shop-order-service/internal/adapter/cache"
	"github.com/example/shop-order-service/internal/adapter/catalog"
	"github.com/example/shop-order-service/internal/adapter/httpapi"
	"github.com/example/shop-order-service/internal/adapter/repo"
	"github.com/example/shop-order-service/internal/config"
	"github.com/example/shop-order-service/internal/domain"
	"github.com/example/shop-order-service/internal/usecase"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	// Хранилища.
	var (
		store       domain.CatalogStore
		ledger      domain.OrderLedger
		idempotency domain.IdempotencyStore
	)
	var pool *pgxpool.Pool
	if cfg.StoreKind == "postgres" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			log.Error("init schema failed", "err", err)
			os.Exit(1)
		}
		store = repo.NewPostgresCatalog(pool)
		ledger = repo.NewPostgresLedger(pool)
		idempotency = repo.NewPostgresIdempotency(pool)
	} else {
		store = repo.NewMemoryCatalog()
		ledger = repo.NewMemoryLedger()
		idempotency = repo.NewMemoryIdempotency()
	}

	// Кэш каталога.
	var productCache domain.ProductCache
	var redisClient *redis.Client
	if cfg.CacheKind == "redis" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Error("redis connect failed", "err", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		productCache = cache.NewRedisCache(redisClient, log)
		if cfg.StoreKind != "postgres" {
			// общий учёт дублей, раз уж Redis доступен
			idempotency = repo.NewRedisIdempotency(redisClient, 0)
		}
	} else {
		productCache = cache.NewMemoryCache()
	}
	cachedCatalog := catalog.New(store, productCache, cfg.CacheTTL)

	// Шина событий.
	var eventBus domain.EventBus
	switch cfg.BusKind {
	case "stan":
		sc, err := bus.ConnectStan(cfg.StanClusterID, cfg.StanClientID, cfg.NatsURL)
		if err != nil {
			log.Error("stan connect failed", "err", err)
			os.Exit(1)
		}
		defer sc.Close()
		eventBus = &bus.StanBus{Conn: sc, Group: cfg.BusGroup, Log: log}
	case "amqp":
		conn, ch, err := bus.ConnectAMQP(cfg.AMQPURL)
		if err != nil {
			log.Error("amqp connect failed", "err", err)
			os.Exit(1)
		}
		defer conn.Close()
		eventBus = &bus.AMQPBus{Ch: ch, Group: cfg.BusGroup, Log: log}
	default:
		mb := bus.NewMemoryBus(log)
		defer mb.Drain()
		eventBus = mb
	}

	// Обработчики событий: ретраи с backoff, затем dead-letter.
	retry := &bus.Retry{Bus: eventBus, Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff, Log: log}
	reconciler := &usecase.InventoryReconciler{
		Catalog:     cachedCatalog,
		Idempotency: idempotency,
		Bus:         eventBus,
		Log:         log,
	}
	confirmer := usecase.ConfirmOrder{Ledger: ledger, Log: log}

	subscriptions := map[string]domain.MessageHandler{
		domain.TopicOrderCreated:       reconciler.HandleOrderCreated,
		domain.TopicOrderCancelled:     reconciler.HandleOrderCancelled,
		domain.TopicInventoryConfirmed: confirmer.Handle,
	}
	for topic, h := range subscriptions {
		if err := eventBus.Subscribe(ctx, topic, retry.Wrap(topic, h)); err != nil {
			log.Error("subscribe failed", "topic", topic, "err", err)
			os.Exit(1)
		}
	}

	// Фоновая сверка зависших заказов.
	sweeper := &usecase.Sweeper{
		Ledger:   ledger,
		Bus:      eventBus,
		Interval: cfg.SweepInterval,
		Age:      cfg.SweepAge,
		Log:      log,
	}
	go sweeper.Run(ctx)

	srv := httpapi.NewServer(
		cachedCatalog,
		usecase.CreateOrder{
			Catalog:        cachedCatalog,
			Ledger:         ledger,
			Bus:            eventBus,
			Log:            log,
			Strategy:       cfg.ValidationStrategy,
			Reservation:    cfg.ReservationMode,
			CatalogTimeout: cfg.CatalogTimeout,
		},
		usecase.CancelOrder{Ledger: ledger, Bus: eventBus, Log: log},
		usecase.GetOrder{Ledger: ledger},
		usecase.ListMyOrders{Ledger: ledger},
		log,
	)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Router}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	_ = httpSrv.Shutdown(shutdownCtx)
	log.Info("server stopped")
}
