package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/storefront-ledger/internal/config"
	"github.com/storefront-ledger/internal/data/postgres"
	"github.com/storefront-ledger/internal/ledgerctl"
	"github.com/storefront-ledger/internal/logger"
	"github.com/storefront-ledger/internal/platform/persistence"
	"github.com/storefront-ledger/internal/registry"
	"github.com/storefront-ledger/internal/reporting"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig("ledgerctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStderrLogger(cfg)

	open := func(ctx context.Context) (*ledgerctl.Ledger, error) {
		postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
		if err != nil {
			return nil, err
		}

		accountRepo := postgres.NewAccountRepository(log, postgresDB)
		journalRepo := postgres.NewJournalRepository(log, postgresDB)
		invoiceRepo := postgres.NewInvoiceRepository(log, postgresDB)

		return &ledgerctl.Ledger{
			Registry: registry.NewService(log, postgresDB, accountRepo),
			Reports: reporting.NewBuilder(postgresDB, accountRepo, journalRepo, invoiceRepo,
				reporting.Config{BalanceToleranceCents: cfg.Ledger.BalanceToleranceCents}, log),
			Close: postgresDB.Close,
		}, nil
	}

	migrate := func(ctx context.Context) (uint, bool, error) {
		if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
			return 0, false, err
		}
		return persistence.MigrationVersion(cfg.Postgres.URL, cfg.Postgres.MigrationsPath)
	}

	if err := ledgerctl.NewRootCommand(open, migrate).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
