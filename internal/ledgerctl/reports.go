package ledgerctl

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/storefront-ledger/internal/reporting"
)

func newTrialBalanceCommand(open Opener, opts *options) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateFlag(asOf, opts)
			if err != nil {
				return err
			}
			return withLedger(cmd, open, func(l *Ledger) error {
				report, err := l.Reports.TrialBalance(cmd.Context(), date)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), report)
				}
				return printTrialBalance(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "report date, yyyy-mm-dd (default today)")
	return cmd
}

func newProfitAndLossCommand(open Opener, opts *options) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Print the profit and loss statement for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := dateFlag(start, opts)
			if err != nil {
				return err
			}
			to, err := dateFlag(end, opts)
			if err != nil {
				return err
			}
			return withLedger(cmd, open, func(l *Ledger) error {
				report, err := l.Reports.ProfitAndLoss(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), report)
				}
				return printProfitAndLoss(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day, yyyy-mm-dd (required)")
	cmd.Flags().StringVar(&end, "end", "", "last day, yyyy-mm-dd (default today)")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newBalanceSheetCommand(open Opener, opts *options) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Print the balance sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateFlag(asOf, opts)
			if err != nil {
				return err
			}
			return withLedger(cmd, open, func(l *Ledger) error {
				report, err := l.Reports.BalanceSheet(cmd.Context(), date)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), report)
				}
				return printBalanceSheet(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "report date, yyyy-mm-dd (default today)")
	return cmd
}

func newAgingCommand(open Opener, opts *options) *cobra.Command {
	var asOf string
	var payable bool

	cmd := &cobra.Command{
		Use:   "aging",
		Short: "Print receivables aging, or payables aging with --payable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateFlag(asOf, opts)
			if err != nil {
				return err
			}
			return withLedger(cmd, open, func(l *Ledger) error {
				build := l.Reports.ArAging
				if payable {
					build = l.Reports.ApAging
				}
				report, err := build(cmd.Context(), date)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), report)
				}
				return printAging(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "report date, yyyy-mm-dd (default today)")
	cmd.Flags().BoolVar(&payable, "payable", false, "age supplier invoices instead of customer invoices")
	return cmd
}

func newStatementCommand(open Opener, opts *options) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "statement <customer-id>",
		Short: "Print a customer's invoices, payments and refunds with a running balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateFlag(asOf, opts)
			if err != nil {
				return err
			}
			return withLedger(cmd, open, func(l *Ledger) error {
				report, err := l.Reports.CustomerStatement(cmd.Context(), args[0], date)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), report)
				}
				return printCustomerStatement(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "statement date, yyyy-mm-dd (default today)")
	return cmd
}

func printTrialBalance(out io.Writer, report *reporting.TrialBalance) error {
	fmt.Fprintf(out, "Trial balance as of %s\n\n", report.AsOf.Format(time.DateOnly))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Number\tName\tDebits\tCredits\t")
	for _, row := range report.Rows {
		if row.Debits == 0 && row.Credits == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", row.Number, row.Name, row.Debits, row.Credits)
	}
	fmt.Fprintf(tw, "\tTotal\t%s\t%s\t\n", report.TotalDebits, report.TotalCredits)
	return tw.Flush()
}

func printProfitAndLoss(out io.Writer, report *reporting.ProfitAndLoss) error {
	fmt.Fprintf(out, "Profit and loss %s to %s\n\n",
		report.Start.Format(time.DateOnly), report.End.Format(time.DateOnly))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	printSection(tw, "Revenue", report.Revenue, report.TotalRevenue.String())
	printSection(tw, "Expenses", report.Expenses, report.TotalExpenses.String())
	fmt.Fprintf(tw, "\tNet income\t%s\t\n", report.NetIncome)
	return tw.Flush()
}

func printBalanceSheet(out io.Writer, report *reporting.BalanceSheet) error {
	fmt.Fprintf(out, "Balance sheet as of %s\n\n", report.AsOf.Format(time.DateOnly))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	printSection(tw, "Assets", report.Assets, report.TotalAssets.String())
	printSection(tw, "Liabilities", report.Liabilities, report.TotalLiabilities.String())
	equity := slices.Concat(report.Equity, []reporting.StatementRow{{Name: "Current earnings", Amount: report.CurrentEarnings}})
	printSection(tw, "Equity", equity, report.TotalEquity.String())
	fmt.Fprintf(tw, "\tLiabilities and equity\t%s\t\n", report.TotalLiabilitiesAndEquity)
	return tw.Flush()
}

func printSection(tw *tabwriter.Writer, title string, rows []reporting.StatementRow, total string) {
	fmt.Fprintf(tw, "%s\t\t\t\n", title)
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", row.Number, row.Name, row.Amount)
	}
	fmt.Fprintf(tw, "\tTotal %s\t%s\t\n\t\t\t\n", title, total)
}

func printAging(out io.Writer, report *reporting.Aging) error {
	fmt.Fprintf(out, "%s aging as of %s\n\n", report.Kind, report.AsOf.Format(time.DateOnly))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Invoice\tCounterparty\tDue\tBalance due\tBucket\t")
	for _, row := range report.Invoices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			row.Number, row.Counterparty, row.DueDate.Format(time.DateOnly), row.BalanceDue, row.Bucket)
	}
	fmt.Fprintln(tw, "\t\t\t\t\t")
	for _, bucket := range report.Buckets {
		fmt.Fprintf(tw, "\t\t%s\t%s\t(%d)\t\n", bucket.Bucket, bucket.Amount, bucket.Count)
	}
	fmt.Fprintf(tw, "\t\tTotal\t%s\t\t\n", report.TotalDue)
	return tw.Flush()
}

func printCustomerStatement(out io.Writer, report *reporting.CustomerStatement) error {
	fmt.Fprintf(out, "Statement for %s (%s) as of %s\n\n",
		report.CustomerName, report.CustomerID, report.AsOf.Format(time.DateOnly))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Date\tInvoice\tDescription\tCharge\tCredit\tBalance\t")
	for _, row := range report.Activity {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			row.Date.Format(time.DateOnly), row.InvoiceNumber, row.Description, row.Charge, row.Credit, row.Balance)
	}
	fmt.Fprintf(tw, "\t\tTotal\t%s\t%s\t%s\t\n", report.TotalCharged, report.TotalCredits, report.Balance)
	return tw.Flush()
}
