package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workclock/internal/clock"
	"workclock/internal/config"
	"workclock/internal/database"
	"workclock/internal/handler"
	"workclock/internal/ledger"
	"workclock/internal/logger"
	"workclock/internal/queue"
	"workclock/internal/repository"
	"workclock/internal/router"
	"workclock/internal/timer"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/local.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting workclock engine",
		zap.String("env", cfg.Env),
		zap.String("config_path", *configPath),
	)

	// Initialize database
	db, err := database.New(cfg.StoragePath, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(db.DB)
	entryRepo := repository.NewEntryRepository(db.DB)

	// Initialize write retry queue and its background processor
	writeQueue := queue.NewWriteQueue(db.DB, log.Logger)
	processor := queue.NewProcessor(
		writeQueue,
		sessionRepo,
		entryRepo,
		time.Duration(cfg.Queue.RetryInterval)*time.Second,
		log.Logger,
	)
	processor.Start()

	// Initialize entry ledger and session machine
	entryLedger := ledger.New(entryRepo, writeQueue, log.Logger)
	machine := timer.NewMachine(
		clock.NewSystem(),
		sessionRepo,
		entryLedger,
		writeQueue,
		log.Logger,
	)

	// Initialize display refresher
	refresher := timer.NewRefresher(
		machine,
		time.Duration(cfg.Timer.RefreshInterval)*time.Second,
		log.Logger,
	)
	refresher.Start()

	// Initialize HTTP surface
	timerHandler := handler.NewTimerHandler(machine, log.Logger)
	entryHandler := handler.NewEntryHandler(entryLedger, log.Logger)

	addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router.New(timerHandler, entryHandler, log.Logger),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("address", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	log.Info("Workclock engine started successfully",
		zap.String("storage_path", cfg.StoragePath),
		zap.Int("refresh_interval_s", cfg.Timer.RefreshInterval),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	log.Info("Shutting down workclock engine...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// Stop refresher and drain the write queue with a timeout
	refresher.Stop()

	done := make(chan struct{})
	go func() {
		processor.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Write queue processor stopped")
	case <-time.After(3 * time.Second):
		log.Warn("Shutdown timeout reached, forcing exit")
		os.Exit(1)
	}

	// Drop intents that exhausted their retries - quick, don't wait
	if err := writeQueue.CleanupOldWrites(time.Duration(cfg.Queue.CleanupAfterHrs) * time.Hour); err != nil {
		log.Error("Failed to cleanup old writes", zap.Error(err))
	}

	log.Info("Workclock engine stopped")
}
