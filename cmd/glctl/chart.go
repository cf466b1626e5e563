package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/spf13/cobra"
)

func newChartCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Manage the chart of accounts",
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Create the default chart of accounts; existing codes are skipped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				result, err := a.services.Accounts.SeedChart(ctx, a.tenantID, a.userID, ledger.DefaultChart)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(result); ok {
					return err
				}
				fmt.Fprintf(a.out, "Created %d accounts, skipped %d existing\n", result.Created, result.Skipped)
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				tree, err := a.services.Accounts.GetTree(ctx, a.tenantID, opts.lang)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(tree); ok {
					return err
				}
				if len(tree) == 0 {
					fmt.Fprintln(a.out, "No accounts found.")
					return nil
				}
				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CODE\tNAME\tCLASS\tCATEGORY\tACTIVE")
				for _, node := range tree {
					printAccountNode(w, node, 0)
				}
				return w.Flush()
			})
		},
	}

	cmd.AddCommand(seed, list)
	return cmd
}

func printAccountNode(w *tabwriter.Writer, node *appledger.AccountTreeNode, depth int) {
	fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%v\n",
		strings.Repeat("  ", depth), node.Code, node.Name, node.Class, node.Category, node.IsActive)
	for _, child := range node.Children {
		printAccountNode(w, child, depth+1)
	}
}
