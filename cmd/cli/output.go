package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/insights"
)

const (
	colorRed    lipgloss.Color = "#f38ba8"
	colorGreen  lipgloss.Color = "#a6e3a1"
	colorYellow lipgloss.Color = "#f9e2af"
	colorBlue   lipgloss.Color = "#89b4fa"
	colorBorder lipgloss.Color = "#585b70"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, headingStyle.Render(title))
}

// newTable builds a bordered table. amountCol, when non-negative, colours
// that column by sign.
func newTable(headers []string, rows [][]string, amountCol int) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == amountCol && row >= 0 && row < len(rows) {
				return cellStyle.Foreground(amountColor(rows[row][col]))
			}
			return cellStyle
		})
}

func amountColor(rendered string) lipgloss.Color {
	if strings.HasPrefix(rendered, "-") || strings.HasPrefix(rendered, "£-") {
		return colorRed
	}
	return colorGreen
}

func transactionRows(txs []domain.Transaction) [][]string {
	rows := make([][]string, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []string{
			fmt.Sprint(t.ID),
			t.Date.Format(domain.DateLayout),
			t.Description,
			insights.Money(t.Amount),
			t.Category,
		})
	}
	return rows
}

func printTransactions(w io.Writer, title string, txs []domain.Transaction) {
	heading(w, fmt.Sprintf("%s (%d)", title, len(txs)))
	if len(txs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("none"))
		return
	}
	fmt.Fprintln(w, newTable([]string{"ID", "DATE", "DESCRIPTION", "AMOUNT", "CATEGORY"}, transactionRows(txs), 3))
}

func kindStyle(k insights.Kind) lipgloss.Style {
	switch k {
	case insights.Alert:
		return lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	case insights.Positive:
		return lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	}
}
