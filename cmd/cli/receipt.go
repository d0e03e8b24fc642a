package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/identity"
	"github.com/dvloznov/smartspend/internal/insights"
	"github.com/dvloznov/smartspend/internal/receipts"
	"github.com/dvloznov/smartspend/internal/service"
)

func newReceiptCommand(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Attach and inspect receipts",
	}

	cmd.AddCommand(
		newReceiptAddCommand(env),
		newReceiptListCommand(env),
		newReceiptItemsCommand(env),
		newReceiptSuggestCommand(env),
	)

	return cmd
}

func newReceiptAddCommand(env *cliEnv) *cobra.Command {
	var textFile, imageFile string

	cmd := &cobra.Command{
		Use:   "add TRANSACTION_ID",
		Short: "Attach a receipt from OCR text or a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if (textFile == "") == (imageFile == "") {
				return errors.New("exactly one of --text or --image is required")
			}

			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				var rec *domain.Receipt
				if textFile != "" {
					text, err := os.ReadFile(textFile)
					if err != nil {
						return fmt.Errorf("reading %s: %w", textFile, err)
					}
					rec, err = svc.AddReceiptText(ctx, id, txID, filepath.Base(textFile), string(text))
					if err != nil {
						return err
					}
				} else {
					image, err := os.ReadFile(imageFile)
					if err != nil {
						return fmt.Errorf("reading %s: %w", imageFile, err)
					}
					rec, err = svc.ScanReceipt(ctx, id, txID, filepath.Base(imageFile), image)
					if err != nil {
						return err
					}
				}

				w := cmd.OutOrStdout()
				if env.jsonOut {
					return writeJSON(w, rec)
				}
				heading(w, fmt.Sprintf("Receipt %d attached to transaction %d", rec.ID, rec.TransactionID))
				printItems(cmd, rec.Items)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&textFile, "text", "", "file holding OCR text")
	cmd.Flags().StringVar(&imageFile, "image", "", "receipt photo to run through OCR")
	return cmd
}

func newReceiptListCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "list TRANSACTION_ID",
		Short: "List receipts attached to a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				recs, err := svc.Receipts(ctx, id, txID)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if env.jsonOut {
					return writeJSON(w, recs)
				}
				rows := make([][]string, 0, len(recs))
				for _, r := range recs {
					rows = append(rows, []string{
						fmt.Sprint(r.ID),
						r.Filename,
						r.CreatedAt.Local().Format("2006-01-02 15:04"),
						fmt.Sprint(len(r.Items)),
					})
				}
				heading(w, fmt.Sprintf("Receipts for transaction %d", txID))
				fmt.Fprintln(w, newTable([]string{"ID", "FILE", "ADDED", "ITEMS"}, rows, -1))
				return nil
			})
		},
	}
}

func newReceiptItemsCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "items RECEIPT_ID",
		Short: "Show the line items parsed from a receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiptID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				items, err := svc.ReceiptItems(ctx, id, receiptID)
				if err != nil {
					return err
				}
				if env.jsonOut {
					return writeJSON(cmd.OutOrStdout(), items)
				}
				printItems(cmd, items)
				return nil
			})
		},
	}
}

func newReceiptSuggestCommand(env *cliEnv) *cobra.Command {
	var (
		textFile string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Rank transactions that could match a receipt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if textFile == "" {
				return errors.New("--text is required")
			}
			text, err := os.ReadFile(textFile)
			if err != nil {
				return fmt.Errorf("reading %s: %w", textFile, err)
			}
			return env.withService(cmd, func(ctx context.Context, svc *service.Service, id identity.Identity) error {
				matches, err := svc.SuggestTransactions(ctx, id, string(text), limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if env.jsonOut {
					if matches == nil {
						matches = []receipts.Match{}
					}
					return writeJSON(w, matches)
				}
				rows := make([][]string, 0, len(matches))
				for _, m := range matches {
					rows = append(rows, []string{
						fmt.Sprintf("%.2f", m.Score),
						fmt.Sprint(m.Transaction.ID),
						m.Transaction.Date.Format(domain.DateLayout),
						m.Transaction.Description,
						insights.Money(m.Transaction.Amount),
					})
				}
				heading(w, "Suggested transactions")
				fmt.Fprintln(w, newTable([]string{"SCORE", "ID", "DATE", "DESCRIPTION", "AMOUNT"}, rows, 4))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&textFile, "text", "", "file holding OCR text")
	cmd.Flags().IntVar(&limit, "limit", receipts.DefaultSuggestions, "number of candidates")
	return cmd
}

func printItems(cmd *cobra.Command, items []domain.ReceiptItem) {
	w := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no line items recognised"))
		return
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Name, it.Qty.String(), it.UnitPrice.StringFixed(2), it.Total.StringFixed(2)})
	}
	fmt.Fprintln(w, newTable([]string{"ITEM", "QTY", "UNIT", "TOTAL"}, rows, -1))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
