package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTransactionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transaction",
		Aliases: []string{"tx"},
		Short:   "Inspect, post and reverse accounting transactions",
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transaction and its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				trans, err := a.services.Transactions.GetByID(ctx, a.tenantID, id)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(trans); ok {
					return err
				}
				return printTransaction(a, trans)
			})
		},
	}

	validate := &cobra.Command{
		Use:   "validate <id>",
		Short: "Check that a transaction would post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				result, verr := a.services.Transactions.Validate(ctx, a.tenantID, id)
				if result != nil {
					if ok, err := a.printJSON(result); ok && err != nil {
						return err
					} else if !ok {
						fmt.Fprintf(a.out, "Entries: %d  Debits: %s  Credits: %s  Difference: %s  Balanced: %v\n",
							result.EntryCount, result.TotalDebits, result.TotalCredits, result.Difference, result.Balanced)
					}
				}
				return verr
			})
		},
	}

	post := &cobra.Command{
		Use:   "post <id>",
		Short: "Post (complete) a draft transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				result, err := a.services.Posting.Complete(ctx, a.tenantID, id, a.userID)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(result); ok {
					return err
				}
				fmt.Fprintf(a.out, "Posted %s at %s (debits %s, credits %s)\n",
					result.ID, result.PostedDate.Format(time.RFC3339), result.TotalDebits, result.TotalCredits)
				return nil
			})
		},
	}

	var reverseDate string
	reverse := &cobra.Command{
		Use:   "reverse <id>",
		Short: "Create and post the reversal of a posted transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var req appledger.ReverseTransactionRequest
			if reverseDate != "" {
				d, err := parseDate(reverseDate)
				if err != nil {
					return err
				}
				req.TransactionDate = &d
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				result, err := a.services.Posting.Reverse(ctx, a.tenantID, id, a.userID, req)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(result); ok {
					return err
				}
				fmt.Fprintf(a.out, "Reversed %s with %s\n", result.OriginalID, result.Reversal.ID)
				return nil
			})
		},
	}
	reverse.Flags().StringVar(&reverseDate, "date", "", "Reversal date (YYYY-MM-DD, default today)")

	cmd.AddCommand(show, validate, post, reverse)
	return cmd
}

func printTransaction(a *app, t *appledger.TransactionResponse) error {
	status := "draft"
	if t.IsPosted {
		status = "posted"
	}
	fmt.Fprintf(a.out, "%s  %s  %s  %s  %s\n", t.ID, t.TransactionDate.Format("2006-01-02"), t.TransType, t.CurrencyUomID, status)
	if t.Description != "" {
		fmt.Fprintln(a.out, t.Description)
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SEQ\tACCOUNT\tDEBIT\tCREDIT\t")
	for _, e := range t.Entries {
		amount := "-"
		if e.Amount.Valid {
			amount = e.Amount.Decimal.StringFixed(2)
		}
		if e.DebitCreditFlag == "D" {
			fmt.Fprintf(w, "%s\t%s\t%s\t\t\n", e.SeqID, e.GlAccountID, amount)
		} else {
			fmt.Fprintf(w, "%s\t%s\t\t%s\t\n", e.SeqID, e.GlAccountID, amount)
		}
	}
	fmt.Fprintf(w, "\tTOTAL\t%s\t%s\t\n", t.TotalDebits.StringFixed(2), t.TotalCredits.StringFixed(2))
	return w.Flush()
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: must be a UUID", s)
	}
	return id, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t, nil
}
