package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/spf13/cobra"
)

func newPeriodCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Manage fiscal periods",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the periods of an organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				periods, err := a.services.Periods.List(ctx, a.tenantID, opts.org)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(periods); ok {
					return err
				}
				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tTYPE\tFROM\tTHRU\tCLOSED")
				for _, p := range periods {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\n", p.ID, p.PeriodName, p.PeriodType,
						p.FromDate.Format("2006-01-02"), p.ThruDate.Format("2006-01-02"), p.IsClosed)
				}
				return w.Flush()
			})
		},
	}

	var (
		periodType, name, from, thru string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an open period [from, thru)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fromDate, err := parseDate(from)
			if err != nil {
				return err
			}
			thruDate, err := parseDate(thru)
			if err != nil {
				return err
			}
			req := appledger.CreatePeriodRequest{
				OrganizationPartyID: opts.org,
				PeriodType:          periodType,
				PeriodName:          name,
				FromDate:            fromDate,
				ThruDate:            thruDate,
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				period, err := a.services.Periods.Create(ctx, a.tenantID, a.userID, req)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(period); ok {
					return err
				}
				fmt.Fprintf(a.out, "Created period %s (%s)\n", period.ID, period.PeriodName)
				return nil
			})
		},
	}
	create.Flags().StringVar(&periodType, "type", "FISCAL_MONTH", "FISCAL_YEAR, FISCAL_QUARTER or FISCAL_MONTH")
	create.Flags().StringVar(&name, "name", "", "Period name")
	create.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD)")
	create.Flags().StringVar(&thru, "thru", "", "Day after the last day (YYYY-MM-DD)")
	_ = create.MarkFlagRequired("from")
	_ = create.MarkFlagRequired("thru")

	closeCmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close a period and snapshot its account balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				result, err := a.services.Periods.Close(ctx, a.tenantID, id)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(result); ok {
					return err
				}
				fmt.Fprintf(a.out, "Closed %s, %d balance snapshots written\n", result.Period.PeriodName, result.Snapshots)
				return nil
			})
		},
	}

	cmd.AddCommand(list, create, closeCmd)
	return cmd
}
