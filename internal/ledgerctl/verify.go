package ledgerctl

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storefront-ledger/internal/domain/shared"
)

// verifyResult is the JSON form of a verify run
type verifyResult struct {
	OK         bool   `json:"ok"`
	Mismatches any    `json:"mismatches,omitempty"`
	Failure    string `json:"failure,omitempty"`
}

func newVerifyCommand(open Opener, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check stored balances and the accounting identities",
		Long: "Replay the journal and compare every stored balance, then check that the trial " +
			"balance and the balance sheet as of today both hold.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, open, func(l *Ledger) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				mismatches, err := l.Reports.VerifyBalances(ctx)
				if err == nil {
					_, err = l.Reports.TrialBalance(ctx, opts.now())
				}
				if err == nil {
					_, err = l.Reports.BalanceSheet(ctx, opts.now())
				}

				var integrity shared.IntegrityError
				if err != nil && !errors.As(err, &integrity) {
					return err
				}

				if opts.json {
					result := verifyResult{OK: err == nil}
					if len(mismatches) > 0 {
						result.Mismatches = mismatches
					}
					if err != nil {
						result.Failure = err.Error()
					}
					if perr := printJSON(out, result); perr != nil {
						return perr
					}
					return err
				}

				for _, m := range mismatches {
					fmt.Fprintf(out, "account %s: stored %s, journal %s\n", m.Number, m.Stored, m.Replayed)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "ledger OK")
				return nil
			})
		},
	}
}
