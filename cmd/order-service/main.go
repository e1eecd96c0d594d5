package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/storefleet/commerce-core/pkg/config"
	"github.com/storefleet/commerce-core/pkg/idempotency"
	"github.com/storefleet/commerce-core/pkg/logging"
	"github.com/storefleet/commerce-core/pkg/outbox"
	"github.com/storefleet/commerce-core/pkg/shutdown"
	"github.com/storefleet/commerce-core/pkg/tracing"

	"github.com/storefleet/commerce-core/internal/order/application"
	"github.com/storefleet/commerce-core/internal/order/infrastructure/client"
	orderhttp "github.com/storefleet/commerce-core/internal/order/infrastructure/http"
	orderkafka "github.com/storefleet/commerce-core/internal/order/infrastructure/kafka"
	orderpg "github.com/storefleet/commerce-core/internal/order/infrastructure/postgres"
)

const staleScanInterval = time.Minute

func main() {
	log := logging.New()
	cfg := config.Load()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "order-service", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := orderpg.Migrate(ctx, pool); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	writer := orderkafka.NewWriter([]string{cfg.KafkaAddr})
	defer writer.Close()

	repo := orderpg.NewRepository(log, pool)
	store := orderpg.NewOutboxStore(log, pool)
	dispatch := outbox.NewDispatcher(log, writer, cfg.OrderEventsTopic)
	relay := outbox.NewRelay(log, store, dispatch, "order-service-relay")

	svc := application.NewService(log, repo,
		client.NewInventory(cfg.InventoryURL),
		client.NewPayment(cfg.PaymentURL))
	handler := orderhttp.NewHandler(log, svc)

	r := chi.NewRouter()
	r.Mount("/", handler.Routes(idempotency.Middleware(idem, log)))
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	go svc.WatchStalePending(ctx, staleScanInterval, cfg.StalePendingAfter)

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("order-service shutdown complete")
}
