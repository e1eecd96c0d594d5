package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/storefleet/commerce-core/pkg/config"
	"github.com/storefleet/commerce-core/pkg/idempotency"
	"github.com/storefleet/commerce-core/pkg/logging"
	"github.com/storefleet/commerce-core/pkg/shutdown"
	"github.com/storefleet/commerce-core/pkg/tracing"

	"github.com/storefleet/commerce-core/internal/notification/application"
	notifhttp "github.com/storefleet/commerce-core/internal/notification/infrastructure/http"
	notifkafka "github.com/storefleet/commerce-core/internal/notification/infrastructure/kafka"
	notifpg "github.com/storefleet/commerce-core/internal/notification/infrastructure/postgres"
)

const consumerGroup = "notification-worker"

func main() {
	log := logging.New()
	cfg := config.Load()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "notification-worker", cfg.OTLPEndpoint, log)
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

	if err := notifpg.Migrate(ctx, pool); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	svc := application.NewService(log, notifpg.NewRepository(log, pool))
	consumer := notifkafka.NewConsumer(log, []string{cfg.KafkaAddr}, cfg.OrderEventsTopic, consumerGroup, svc, idem)
	handler := notifhttp.NewHandler(log, svc)

	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	log.Info("consuming order events", "topic", cfg.OrderEventsTopic, "group", consumerGroup)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped with error", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("notification-worker shutdown complete")
}
