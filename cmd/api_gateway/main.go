package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/storefront-ledger/internal/api_gateway"
	"github.com/storefront-ledger/internal/api_gateway/service"
	"github.com/storefront-ledger/internal/config"
	"github.com/storefront-ledger/internal/data/mongo"
	"github.com/storefront-ledger/internal/data/postgres"
	"github.com/storefront-ledger/internal/logger"
	"github.com/storefront-ledger/internal/platform/messaging/producers"
	"github.com/storefront-ledger/internal/platform/persistence"
	"github.com/storefront-ledger/internal/posting"
	"github.com/storefront-ledger/internal/reconciliation"
	"github.com/storefront-ledger/internal/registry"
	"github.com/storefront-ledger/internal/reporting"
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

	// Initialize databases with app context; migrations run before the pool opens
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

	// Publishes business events for asynchronous posting
	eventProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka event producer", "error", err)
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

	// Ledger core
	accountRegistry := registry.NewService(log, postgresDB, accountRepo)
	if err := seedChart(appCtx, accountRegistry, cfg.Ledger.ChartFile); err != nil {
		log.Error("Failed to seed chart of accounts", "error", err)
		os.Exit(1)
	}
	engine := posting.NewEngine(postgresDB, accountRepo, journalRepo, invoiceRepo, outboxRepo,
		posting.Config{PaymentTermsDays: cfg.Ledger.PaymentTermsDays}, log)
	adjustments := reconciliation.NewHandler(engine, log)
	reports := reporting.NewBuilder(postgresDB, accountRepo, journalRepo, invoiceRepo,
		reporting.Config{BalanceToleranceCents: cfg.Ledger.BalanceToleranceCents}, log)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Accounts:  service.NewAccountService(accountRegistry, journalRepo),
		Journal:   service.NewJournalService(journalRepo, engine),
		Postings:  service.NewPostingService(engine, adjustments),
		Reports:   reports,
		Events:    service.NewEventService(log, auditRepo, eventProducer),
		Recurring: service.NewRecurringExpenseService(log, recurringRepo, accountRepo),
	})
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

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

	log.Info("Starting graceful shutdown...")

	// Drain HTTP first so no posting starts after the pool closes
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
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

// seedChart creates any chart accounts that are missing. An empty path seeds the
// built-in retail chart.
func seedChart(ctx context.Context, accountRegistry *registry.Service, path string) error {
	chart, err := registry.LoadChart(path)
	if err != nil {
		return err
	}
	_, err = accountRegistry.SeedChart(ctx, chart)
	return err
}
