package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dvloznov/smartspend/internal/app"
	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/identity"
	"github.com/dvloznov/smartspend/internal/insights"
	"github.com/dvloznov/smartspend/internal/service"
)

func newImportCommand(env *cliEnv) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a bank CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				res, err := svc.ImportCSV(ctx, id, f, filepath.Base(args[0]), replace)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if env.jsonOut {
					return writeJSON(w, res)
				}

				heading(w, fmt.Sprintf("Imported %d transactions (%d dropped)", res.Imported, res.Dropped))
				for _, d := range res.DroppedRows {
					fmt.Fprintln(w, mutedStyle.Render("  "+d.Error()))
				}
				cats := make([]string, 0, len(res.ByCategory))
				for c := range res.ByCategory {
					cats = append(cats, c)
				}
				sort.Strings(cats)
				rows := make([][]string, 0, len(cats))
				for _, c := range cats {
					rows = append(rows, []string{c, fmt.Sprint(res.ByCategory[c])})
				}
				fmt.Fprintln(w, newTable([]string{"CATEGORY", "ROWS"}, rows, -1))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace all existing transactions instead of appending")
	return cmd
}

func newTransactionsCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "transactions",
		Short: "List transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				txs, err := svc.Transactions(ctx, id)
				if err != nil {
					return err
				}
				if env.jsonOut {
					return writeJSON(cmd.OutOrStdout(), txs)
				}
				printTransactions(cmd.OutOrStdout(), "Transactions", txs)
				return nil
			})
		},
	}
}

func newDashboardCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show totals, monthly net and spending by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				sum, err := svc.Dashboard(ctx, id)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if env.jsonOut {
					return writeJSON(w, sum)
				}

				heading(w, "Overview")
				fmt.Fprintln(w, newTable([]string{"TOTAL INCOME", "TOTAL EXPENSES", "NET CHANGE"}, [][]string{{
					insights.Money(sum.TotalIncome),
					insights.Money(sum.TotalExpenses),
					insights.Money(sum.NetChange),
				}}, 2))

				monthly := make([][]string, 0, len(sum.Monthly))
				for _, m := range sum.Monthly {
					monthly = append(monthly, []string{m.Month, insights.Money(m.Net)})
				}
				heading(w, "Monthly net")
				fmt.Fprintln(w, newTable([]string{"MONTH", "NET"}, monthly, 1))

				cats := make([][]string, 0, len(sum.SpendByCategory))
				for _, c := range sum.SpendByCategory {
					cats = append(cats, []string{c.Category, insights.Money(c.Amount)})
				}
				heading(w, "Spending by category")
				fmt.Fprintln(w, newTable([]string{"CATEGORY", "SPENT"}, cats, -1))

				printTransactions(w, "Recent", sum.Recent)
				printTransactions(w, "Unusual expenses", sum.UnusualExpenses)
				printTransactions(w, "Unusual income", sum.UnusualIncome)
				return nil
			})
		},
	}
}

func newInsightsCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Explain unusual transactions and spending trends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				ins, err := svc.Insights(ctx, id)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if env.jsonOut {
					return writeJSON(w, ins)
				}
				for _, in := range ins {
					fmt.Fprintln(w, kindStyle(in.Type).Render(in.Title))
					fmt.Fprintln(w, "  "+in.Message)
				}
				return nil
			})
		},
	}
}

func newAnomaliesCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "anomalies",
		Short: "List transactions flagged as unusual",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				flagged, err := svc.Anomalies(ctx, id)
				if err != nil {
					return err
				}
				if env.jsonOut {
					if flagged == nil {
						flagged = []domain.Transaction{}
					}
					return writeJSON(cmd.OutOrStdout(), flagged)
				}
				printTransactions(cmd.OutOrStdout(), "Unusual transactions", flagged)
				return nil
			})
		},
	}
}

func newForecastCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Project the monthly running balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				out, err := svc.Forecast(ctx, id)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if env.jsonOut {
					return writeJSON(w, out)
				}

				title := "Forecast (" + string(out.Mode)
				if out.Model != "" {
					title += " " + out.Model
				}
				heading(w, title+")")
				if out.Reason != "" {
					fmt.Fprintln(w, mutedStyle.Render(out.Reason))
				}
				rows := make([][]string, 0, len(out.Points))
				for _, p := range out.Points {
					rows = append(rows, []string{p.Month, insights.Money(p.Mean), insights.Money(p.Lower), insights.Money(p.Upper)})
				}
				fmt.Fprintln(w, newTable([]string{"MONTH", "BALANCE", "LOWER", "UPPER"}, rows, 1))
				return nil
			})
		},
	}
}

func newImportsCommand(env *cliEnv) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "imports",
		Short: "List recent CSV imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				runs, err := svc.ImportRuns(ctx, id, limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if env.jsonOut {
					return writeJSON(w, runs)
				}
				rows := make([][]string, 0, len(runs))
				for _, r := range runs {
					rows = append(rows, []string{
						r.StartedAt.Local().Format("2006-01-02 15:04"),
						r.Source,
						string(r.Status),
						fmt.Sprint(r.Imported),
						fmt.Sprint(r.Dropped),
						r.ErrorMessage,
					})
				}
				heading(w, "Imports")
				fmt.Fprintln(w, newTable([]string{"STARTED", "SOURCE", "STATUS", "IMPORTED", "DROPPED", "ERROR"}, rows, -1))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", service.DefaultImportRunLimit, "number of runs to show")
	return cmd
}

func newMigrateCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the primary store's schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Migrate(cmd.Context(), env.cfg.Store); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s store is up to date\n", env.cfg.Store.Driver)
			return nil
		},
	}
}
