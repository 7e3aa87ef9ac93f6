package ledgerctl

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/storefront-ledger/internal/registry"
)

func newSeedCommand(open Opener, opts *options) *cobra.Command {
	var chartFile string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the chart of accounts",
		Long:  "Create every account of the chart that does not exist yet. Without --chart the built-in retail chart is used.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chart, err := registry.LoadChart(chartFile)
			if err != nil {
				return err
			}

			return withLedger(cmd, open, func(l *Ledger) error {
				result, err := l.Registry.SeedChart(cmd.Context(), chart)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "created %d accounts", len(result.Created))
				if len(result.Created) > 0 {
					fmt.Fprintf(out, ": %s", strings.Join(result.Created, ", "))
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "skipped %d existing accounts\n", len(result.Skipped))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&chartFile, "chart", "", "YAML chart of accounts")
	return cmd
}
