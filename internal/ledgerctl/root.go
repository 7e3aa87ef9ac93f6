// Package ledgerctl implements the ledger admin CLI: schema migrations, chart
// seeding, integrity checks and report printing.
package ledgerctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/storefront-ledger/internal/registry"
	"github.com/storefront-ledger/internal/reporting"
)

// Ledger is what the commands operate on
type Ledger struct {
	Registry *registry.Service
	Reports  *reporting.Builder
	Close    func()
}

// Opener connects to the ledger store
type Opener func(ctx context.Context) (*Ledger, error)

// Migrator applies pending schema migrations and reports the resulting version
type Migrator func(ctx context.Context) (version uint, dirty bool, err error)

type options struct {
	json bool
	now  func() time.Time
}

// NewRootCommand creates the root CLI command with all subcommands registered
func NewRootCommand(open Opener, migrate Migrator) *cobra.Command {
	opts := &options{now: func() time.Time { return time.Now().UTC() }}

	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Storefront ledger administration",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		newMigrateCommand(migrate),
		newSeedCommand(open, opts),
		newVerifyCommand(open, opts),
		newTrialBalanceCommand(open, opts),
		newProfitAndLossCommand(open, opts),
		newBalanceSheetCommand(open, opts),
		newAgingCommand(open, opts),
		newStatementCommand(open, opts),
	)

	return rootCmd
}

// withLedger opens the ledger for the duration of fn
func withLedger(cmd *cobra.Command, open Opener, fn func(l *Ledger) error) error {
	l, err := open(cmd.Context())
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	if l.Close != nil {
		defer l.Close()
	}
	return fn(l)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// dateFlag parses a yyyy-mm-dd flag value, falling back to today when empty
func dateFlag(value string, opts *options) (time.Time, error) {
	if value == "" {
		return opts.now(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected yyyy-mm-dd", value)
	}
	return t, nil
}
