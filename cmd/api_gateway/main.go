package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/agritrace-ledger/internal/api_gateway"
	"github.com/agritrace-ledger/internal/api_gateway/service"
	"github.com/agritrace-ledger/internal/config"
	"github.com/agritrace-ledger/internal/data/memory"
	"github.com/agritrace-ledger/internal/data/postgres"
	"github.com/agritrace-ledger/internal/domain/trace"
	"github.com/agritrace-ledger/internal/ledger"
	"github.com/agritrace-ledger/internal/logger"
	"github.com/agritrace-ledger/internal/outbox_poller"
	"github.com/agritrace-ledger/internal/platform/messaging/producers"
	"github.com/agritrace-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize the ledger store per the configured driver
	var store trace.Store
	var postgresDB *persistence.PostgresDB
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		postgresDB, err = persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
		if err != nil {
			log.Error("Failed to initialize PostgreSQL", "error", err)
			os.Exit(1)
		}
		store = postgres.NewStore(log, postgresDB)
	case config.StorageDriverMemory:
		store = memory.NewStore()
	default:
		log.Error("Unknown storage driver", "driver", cfg.Storage.Driver)
		os.Exit(1)
	}

	// Initialize Kafka producer for the trace event stream
	kafkaProducer, err := producers.NewTraceEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize trace event Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize ledger and service
	batchLedger := ledger.NewBatchLedger(log, store)
	traceService := service.NewTraceabilityService(log, batchLedger)

	// Initialize outbox poller; the gateway owns the store, so the poller
	// runs in-process
	eventPublisher := outbox_poller.NewEventPublisher(store.Outbox(), kafkaProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, store.Outbox(), eventPublisher, log)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, traceService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Wait for the poller to drain
	wg.Wait()

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if postgresDB != nil {
		postgresDB.Close()
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
