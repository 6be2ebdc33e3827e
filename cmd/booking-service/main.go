package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/stayware/booking-platform/internal/config"
	"github.com/stayware/booking-platform/pkg/logging"
	"github.com/stayware/booking-platform/pkg/outbox"
	"github.com/stayware/booking-platform/pkg/shutdown"
	"github.com/stayware/booking-platform/pkg/tracing"

	availapp "github.com/stayware/booking-platform/internal/availability/application"
	availpg "github.com/stayware/booking-platform/internal/availability/infrastructure/postgres"
	bookingapp "github.com/stayware/booking-platform/internal/booking/application"
	bookinghttp "github.com/stayware/booking-platform/internal/booking/infrastructure/http"
	bookingkafka "github.com/stayware/booking-platform/internal/booking/infrastructure/kafka"
	bookingpg "github.com/stayware/booking-platform/internal/booking/infrastructure/postgres"
)

const migrationsDir = "migrations"

func main() {
	var cfg config.BookingService
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "booking-service", cfg.Tracing.Endpoint, log)
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

	writer := bookingkafka.NewWriter(cfg.Kafka.Brokers)
	defer writer.Close()

	windowRepo := availpg.NewRepository(log, pool)
	bookingRepo := bookingpg.NewRepository(log, pool)
	catalog := bookingpg.NewCatalog(pool)
	outboxStore := bookingpg.NewOutboxStore(log, pool)

	dispatch := outbox.NewDispatcher(log, writer, cfg.Kafka.Topic)
	relay := outbox.NewRelay(log, outboxStore, dispatch, "booking-service-relay")

	ledger := availapp.NewService(log, windowRepo)
	bookings := bookingapp.NewService(log, bookingRepo, catalog, ledger)
	handler := bookinghttp.NewHandler(log, bookings, ledger)

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
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

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
	log.Info("booking-service shutdown complete")
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
