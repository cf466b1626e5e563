package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/spf13/cobra"
)

func newReportCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print financial reports",
	}

	var from, thru string
	query := func() (appledger.ReportQuery, error) {
		q := appledger.ReportQuery{OrganizationPartyID: opts.org, Language: opts.lang}
		var err error
		if from != "" {
			if q.From, err = parseDate(from); err != nil {
				return q, err
			}
		}
		if thru != "" {
			if q.Thru, err = parseDate(thru); err != nil {
				return q, err
			}
		}
		return q, nil
	}
	cmd.PersistentFlags().StringVar(&from, "from", "", "Period start (YYYY-MM-DD)")
	cmd.PersistentFlags().StringVar(&thru, "thru", "", "Period end, exclusive (YYYY-MM-DD)")

	trial := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := query()
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				tb, err := a.services.Reports.GetTrialBalance(ctx, a.tenantID, q)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(tb); ok {
					return err
				}
				return printTrialBalance(a, tb)
			})
		},
	}

	income := &cobra.Command{
		Use:   "income-statement",
		Short: "Print the income statement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := query()
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				is, err := a.services.Reports.GetIncomeStatement(ctx, a.tenantID, q)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(is); ok {
					return err
				}
				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				printBucket(w, "Revenue", is.Revenue)
				printBucket(w, "Sales returns and discounts", is.ContraRevenue)
				fmt.Fprintf(w, "Net sales\t\t%s\n", is.NetSales.StringFixed(2))
				printBucket(w, "Cost of goods sold", is.COGS)
				fmt.Fprintf(w, "Gross profit\t\t%s\n", is.GrossProfit.StringFixed(2))
				printBucket(w, "Selling, general and administrative", is.SGA)
				printBucket(w, "Depreciation", is.Depreciation)
				printBucket(w, "Other expenses", is.OtherExpense)
				fmt.Fprintf(w, "Net income\t\t%s\n", is.NetIncome.StringFixed(2))
				return w.Flush()
			})
		},
	}

	var asOf string
	sheet := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Print the balance sheet as of a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date := time.Now().UTC()
			if asOf != "" {
				var err error
				if date, err = parseDate(asOf); err != nil {
					return err
				}
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				bs, err := a.services.Reports.GetBalanceSheet(ctx, a.tenantID, opts.org, date, opts.lang)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(bs); ok {
					return err
				}
				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				printBucket(w, "Assets", bs.Assets)
				printBucket(w, "Liabilities", bs.Liabilities)
				printBucket(w, "Equity", bs.Equity)
				fmt.Fprintf(w, "Current earnings\t\t%s\n", bs.CurrentEarnings.StringFixed(2))
				if bs.Balanced {
					fmt.Fprintln(w, "[BALANCED]")
				} else {
					fmt.Fprintln(w, "[UNBALANCED]")
				}
				return w.Flush()
			})
		},
	}
	sheet.Flags().StringVar(&asOf, "as-of", "", "Report date, exclusive (default now)")

	cashFlow := &cobra.Command{
		Use:   "cash-flow",
		Short: "Print the movements of cash accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := query()
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				cf, err := a.services.Reports.GetCashFlowStatement(ctx, a.tenantID, q)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(cf); ok {
					return err
				}
				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(w, "CODE\tACCOUNT\tOPENING\tIN\tOUT\tCLOSING\t")
				for _, l := range cf.Lines {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", l.AccountCode, l.AccountName,
						l.OpeningBalance.StringFixed(2), l.Inflows.StringFixed(2),
						l.Outflows.StringFixed(2), l.ClosingBalance.StringFixed(2))
				}
				fmt.Fprintf(w, "\tTOTAL\t%s\t%s\t%s\t%s\t\n", cf.OpeningCash.StringFixed(2),
					cf.Inflows.StringFixed(2), cf.Outflows.StringFixed(2), cf.ClosingCash.StringFixed(2))
				return w.Flush()
			})
		},
	}

	var unposted, children bool
	balance := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Print the balance of one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			q, err := query()
			if err != nil {
				return err
			}
			bq := appledger.BalanceQuery{
				AccountID:           id,
				From:                q.From,
				Thru:                q.Thru,
				OrganizationPartyID: opts.org,
				IncludeUnposted:     unposted,
				IncludeChildren:     children,
				Language:            opts.lang,
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				b, err := a.services.Reports.GetBalances(ctx, a.tenantID, bq)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(b); ok {
					return err
				}
				fmt.Fprintf(a.out, "%s %s (%s, normal %s)\n", b.AccountCode, b.AccountName, b.Class, b.NormalBalance)
				fmt.Fprintf(a.out, "Opening %s  Debits %s  Credits %s  Ending %s\n",
					b.OpeningBalance.StringFixed(2), b.PostedDebits.StringFixed(2),
					b.PostedCredits.StringFixed(2), b.EndingBalance.StringFixed(2))
				if b.Unposted != nil {
					fmt.Fprintf(a.out, "Unposted debits %s  credits %s\n",
						b.Unposted.Debits.StringFixed(2), b.Unposted.Credits.StringFixed(2))
				}
				return nil
			})
		},
	}
	balance.Flags().BoolVar(&unposted, "include-unposted", false, "Also total draft entries")
	balance.Flags().BoolVar(&children, "include-children", false, "Roll up descendant accounts")

	cmd.AddCommand(trial, income, sheet, cashFlow, balance)
	return cmd
}

func printTrialBalance(a *app, tb *ledger.TrialBalance) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "CODE\tACCOUNT\tOPENING\tDEBITS\tCREDITS\tENDING DR\tENDING CR\t")
	for _, l := range tb.Lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", l.AccountCode, l.AccountName,
			l.OpeningBalance.StringFixed(2), l.PostedDebits.StringFixed(2), l.PostedCredits.StringFixed(2),
			l.EndingDebit.StringFixed(2), l.EndingCredit.StringFixed(2))
	}
	fmt.Fprintf(w, "\tTOTAL\t%s\t%s\t%s\t%s\t%s\t\n", tb.TotalOpening.StringFixed(2),
		tb.TotalDebits.StringFixed(2), tb.TotalCredits.StringFixed(2),
		tb.TotalEndingDebit.StringFixed(2), tb.TotalEndingCredit.StringFixed(2))
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Status: %s\n", tb.Status)
	return nil
}

func printBucket(w *tabwriter.Writer, title string, b ledger.ReportBucket) {
	if len(b.Lines) == 0 && b.Total.IsZero() {
		return
	}
	fmt.Fprintf(w, "%s\t\t\n", title)
	for _, l := range b.Lines {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", l.AccountCode, l.AccountName, l.Amount.StringFixed(2))
	}
	fmt.Fprintf(w, "Total %s\t\t%s\n", title, b.Total.StringFixed(2))
}
