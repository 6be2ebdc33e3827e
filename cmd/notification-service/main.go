package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/stayware/booking-platform/internal/config"
	"github.com/stayware/booking-platform/pkg/idempotency"
	"github.com/stayware/booking-platform/pkg/logging"
	"github.com/stayware/booking-platform/pkg/shutdown"
	"github.com/stayware/booking-platform/pkg/tracing"

	"github.com/stayware/booking-platform/internal/monitor"
	monitorpg "github.com/stayware/booking-platform/internal/monitor/postgres"
	"github.com/stayware/booking-platform/internal/notification/application"
	notifemail "github.com/stayware/booking-platform/internal/notification/infrastructure/email"
	notifhttp "github.com/stayware/booking-platform/internal/notification/infrastructure/http"
	notifkafka "github.com/stayware/booking-platform/internal/notification/infrastructure/kafka"
	notifpg "github.com/stayware/booking-platform/internal/notification/infrastructure/postgres"
)

const migrationsDir = "migrations"

func main() {
	var cfg config.NotificationService
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "notification-service", cfg.Tracing.Endpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.Redis.TTL)

	store := notifpg.NewRepository(pool)
	queue := notifpg.NewQueue(pool)
	producer := application.NewProducer(log, store, queue)
	transport := notifemail.NewSender(log)

	consumerID := "notification-worker-" + uuid.NewString()[:8]
	delivery := application.NewConsumer(log, queue, store, transport, consumerID)
	delivery.Interval = cfg.Delivery.Interval
	delivery.Visibility = cfg.Delivery.Visibility
	delivery.AttemptTimeout = cfg.Delivery.AttemptTimeout
	delivery.BatchSize = cfg.Delivery.BatchSize
	delivery.MaxRetries = cfg.Delivery.MaxRetries

	events := notifkafka.NewConsumer(log, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group, producer, idem)

	capacity := monitor.New(log, monitorpg.NewSource(pool), producer, cfg.Monitor.Interval, cfg.Monitor.Horizon)

	handler := notifhttp.NewHandler(log, store, queue)
	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		if err := events.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("booking events consumer stopped", "err", err)
			cancel()
		}
	}()

	go delivery.Run(ctx)
	go capacity.Run(ctx)
	go sweepPending(ctx, log, producer, cfg.Delivery.SweepInterval, cfg.Delivery.SweepOlderThan)

	go func() {
		log.Info("http listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdown.Timeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("notification-service shutdown complete")
}

// sweepPending periodically rescues Pending rows whose enqueue was lost.
func sweepPending(ctx context.Context, log *slog.Logger, producer *application.Producer, interval, olderThan time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := producer.SweepPending(ctx, olderThan); err != nil {
				log.Error("pending sweep failed", "err", err)
			}
		}
	}
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
