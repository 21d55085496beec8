package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/api"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/broadcast"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/config"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/kafka"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/ledger"
	ledger_db "github.com/MuhammadRamzy/Event-Ticket-Manager/internal/ledger/db"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/logger"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/presence"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/scan"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/ws"
)

func openLedgerDB(cfg *config.Config, log *logger.Logger) *bun.DB {
	if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to create data directory: %v", err))
		}
	}

	sqldb, err := sql.Open("sqlite", cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open SQLite ledger: %v", err))
	}
	// The durable ledger is single-writer; one connection keeps every
	// commit strictly ordered.
	sqldb.SetMaxOpenConns(1)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to SQLite ledger: %v", err))
	}

	log.Info("DATABASE", fmt.Sprintf("SQLite ledger open at %s", cfg.Storage.SQLitePath))
	return bun.NewDB(sqldb, sqlitedialect.New())
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Ticket Manager initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := openLedgerDB(cfg, log)
	defer bunDB.Close()

	ledgerDB := &ledger_db.DB{Bun: bunDB}
	if err := ledgerDB.CreateSchema(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to create ledger schema: %v", err))
	}

	store := ledger.NewStore(ledgerDB)
	count, err := store.Reload(ctx)
	if err != nil {
		log.Fatal("LEDGER", fmt.Sprintf("Failed to reload ledger: %v", err))
	}
	if count > 0 {
		log.Info("LEDGER", fmt.Sprintf("Restored %d tickets from durable ledger", count))
	} else {
		log.Info("LEDGER", "No ledger on disk yet, waiting for import")
	}

	emitter := broadcast.NewEmitter()
	hub := ws.NewHub(log)
	go hub.Run()

	publishers := broadcast.Multi{emitter, hub}

	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicExists(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		publishers = append(publishers, producer)
		log.Info("KAFKA", fmt.Sprintf("Scan event sink enabled on topic %s", cfg.Kafka.Topic))
	}

	var tracker presence.Tracker
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
		}
		defer redisClient.Close()
		tracker = presence.NewRedisTracker(redisClient, cfg.Scanner.HeartbeatTTL, publishers, log)
		log.Info("PRESENCE", fmt.Sprintf("Redis scanner presence enabled at %s", cfg.Redis.Addr))
	} else {
		tracker = presence.NewMemoryTracker(cfg.Scanner.HeartbeatTTL, publishers)
	}
	defer tracker.Close()

	scanService := scan.NewService(store, publishers, tracker, log)

	handler := &api.Handler{
		Config:  cfg,
		Logger:  log,
		Scan:    scanService,
		Store:   store,
		Emitter: emitter,
		Hub:     hub,
		Tracker: tracker,
	}

	log.Info("HTTP", "Setting up router and middleware")
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		// No WriteTimeout: the SSE stream never finishes writing.
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Ticket Manager running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Ticket Manager shutdown complete")
	}
}
