package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	_ "cartflow/docs"
	"cartflow/pkg/cart"
	"cartflow/pkg/cart/memory"
	pg "cartflow/pkg/cart/postgres"
	redisstore "cartflow/pkg/cart/redis"
	"cartflow/pkg/catalog"
	catalogmem "cartflow/pkg/catalog/memory"
	"cartflow/pkg/config"
	"cartflow/pkg/logger"
	"cartflow/pkg/notify"
	"cartflow/pkg/otel"
)

// snapshotBackend is a cart snapshot slot that can report its health.
type snapshotBackend interface {
	cart.Snapshots
	Ping(ctx context.Context) error
}

// @title CartFlow API
// @version 1.0
// @description Shopping cart with stock-checked mutations
// @host localhost:8080
// @BasePath /
func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), "cartflow", otel.GetTraceID)
	defer log.Sync()

	if err := run(log, cfg); err != nil {
		log.Error(context.Background(), "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdown, err := otel.InitTracing(log, otel.Config{
		ServiceName: "cartflow",
		Host:        cfg.OTelHost,
		Probability: cfg.OTelSample,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdown(context.Background())

	snapshots, closeSnapshots, err := openSnapshots(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer closeSnapshots()

	products, err := openCatalog(log, cfg)
	if err != nil {
		return err
	}

	carts := cart.NewRegistry(cfg.StorageKey, products, snapshots, notify.NewLog(log), log,
		cart.WithIdleTTL(cfg.SessionIdleTTL),
		cart.WithMaxSessions(cfg.MaxSessions),
	)
	if cfg.SessionIdleTTL > 0 {
		go carts.Run(ctx, cfg.SessionIdleTTL/2)
	}

	a := &api{
		carts:  carts,
		health: snapshots.Ping,
		log:    log,
		tracer: tp.Tracer("cartflow"),
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info(context.Background(), "shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	log.Info(ctx, "listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv, "storage", cfg.StorageBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openSnapshots(ctx context.Context, log *logger.Logger, cfg config.Config) (snapshotBackend, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		log.Warn(ctx, "using in-memory snapshots; carts will not survive a restart")
		return memory.New(), func() {}, nil

	case config.StorageRedis:
		client := redisstore.Dial(cfg.RedisAddr)
		s := redisstore.New(client, cfg.RedisTTL)
		if err := s.WaitReady(ctx, 10); err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Info(ctx, "redis snapshots ready", "addr", cfg.RedisAddr)
		return s, func() { client.Close() }, nil

	case config.StoragePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		s := pg.New(db)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("create table: %w", err)
		}
		log.Info(ctx, "postgres snapshots ready")
		return s, func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func openCatalog(log *logger.Logger, cfg config.Config) (cart.Catalog, error) {
	if cfg.CatalogFile != "" {
		c, err := catalogmem.Load(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog file: %w", err)
		}
		log.Info(context.Background(), "serving catalog from file", "path", cfg.CatalogFile)
		return c, nil
	}
	return catalog.New(cfg.CatalogURL, cfg.CatalogTimeout), nil
}
