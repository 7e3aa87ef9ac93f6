package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/storefront-ledger/internal/config"
	"github.com/storefront-ledger/internal/data/mongo"
	"github.com/storefront-ledger/internal/data/postgres"
	"github.com/storefront-ledger/internal/logger"
	"github.com/storefront-ledger/internal/platform/messaging/consumers"
	"github.com/storefront-ledger/internal/platform/messaging/producers"
	"github.com/storefront-ledger/internal/platform/persistence"
	"github.com/storefront-ledger/internal/posting"
	"github.com/storefront-ledger/internal/posting_processor/components"
	"github.com/storefront-ledger/internal/posting_processor/consumer"
	"github.com/storefront-ledger/internal/posting_processor/outbox_poller"
	"github.com/storefront-ledger/internal/posting_processor/scheduler"
	"github.com/storefront-ledger/internal/posting_processor/service"
	"github.com/storefront-ledger/internal/reconciliation"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("posting_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Posting Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	journalRepo := postgres.NewJournalRepository(log, postgresDB)
	invoiceRepo := postgres.NewInvoiceRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	recurringRepo := postgres.NewRecurringRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create posting record indexes", "error", err)
		os.Exit(1)
	}

	engine := posting.NewEngine(postgresDB, accountRepo, journalRepo, invoiceRepo, outboxRepo,
		posting.Config{PaymentTermsDays: cfg.Ledger.PaymentTermsDays}, log)

	// Queued adjustments go through the same policy as HTTP ones
	poster := components.NewPoster(engine, reconciliation.NewHandler(engine, log))

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// dlqProducer is nil when no DLQ topic is configured; the handler copes with that
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	processingService := components.CreateProcessingService(poster, auditRepo, log, cfg.WorkerPool)

	eventHandler := consumer.NewEventHandler(log, processingService, dlqProducer)

	statusPublisher := outbox_poller.NewAuditStatusPublisher(outboxRepo, auditRepo, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, statusPublisher, log)

	recurringScheduler := scheduler.NewScheduler(&cfg.Scheduler, recurringRepo, engine, log)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.EventTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()
	go func() {
		defer wg.Done()
		recurringScheduler.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Let postings already handed to the pool commit before the database closes
	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		wpService.Shutdown(10 * time.Second)
	}

	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Posting Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Posting Processor shutdown completed with errors")
	} else {
		log.Info("Posting Processor shutdown completed successfully")
	}
}
