package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/dashboard"
)

func dashboardCmd(a *app) *cobra.Command {
	var (
		user   string
		q      dashboard.Query
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print a user's dashboard",
		Long: `Print the dashboard for one user: balance, totals, expense statistics,
category breakdowns and the most recent transactions.

Dates default to the current month up to today.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := dashboard.NewService(a.store, dashboard.Config{
				FetchTimeout: a.cfg.FetchTimeout,
				RecentLimit:  a.cfg.RecentLimit,
				Location:     a.cfg.Location(),
			})
			res := svc.Dashboard(cmd.Context(), user, q)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printDashboard(out, user, res)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id (required)")
	cmd.Flags().StringVar(&q.StartDate, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&q.EndDate, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&q.Category, "category", "", "only this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printDashboard(out io.Writer, user string, res dashboard.Result) error {
	if res.DataUnavailable {
		fmt.Fprintln(out, "warning: transactions could not be loaded; figures are empty")
	}
	fmt.Fprintf(out, "Dashboard for %s (%s to %s, category %s)\n\n", user, res.StartDate, res.EndDate, res.SelectedCategory)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Balance\t%.2f\t\n", res.Balance)
	fmt.Fprintf(tw, "Income\t%.2f\t%d records\n", res.TotalIncome, res.IncomeCount)
	fmt.Fprintf(tw, "Expenses\t%.2f\t%d records\n", res.TotalExpense, res.ExpenseCount)
	fmt.Fprintf(tw, "Expense mean/max/min\t%.2f / %.2f / %.2f\t\n", res.Stats.Mean, res.Stats.Max, res.Stats.Min)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(res.Categories.Expense) > 0 {
		fmt.Fprintln(out, "\nExpenses by category")
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, c := range res.Categories.Expense {
			fmt.Fprintf(tw, "  %s\t%.2f\t%.1f%%\n", c.Category, c.Value, c.Percentage)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(res.Categories.Income) > 0 {
		fmt.Fprintln(out, "\nIncome by category")
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, c := range res.Categories.Income {
			fmt.Fprintf(tw, "  %s\t%.2f\n", c.Category, c.Value)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "\nRecent transactions")
	if len(res.Recent) == 0 {
		fmt.Fprintln(out, "  none")
		return nil
	}
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  DATE\tKIND\tDESCRIPTION\tCATEGORY\tAMOUNT")
	for _, it := range res.Recent {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%.2f\n", it.Date, it.Kind, it.Description, it.Category, it.Amount)
	}
	return tw.Flush()
}
