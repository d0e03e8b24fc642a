// Package normalize maps bank CSV exports with arbitrary headers onto the
// canonical {date, description, amount} transaction shape.
package normalize

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/shopspring/decimal"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a raw CSV: one header row plus data rows of any width.
type Table struct {
	Header []string
	Rows   [][]string
}

// Result is the canonical output of Normalize.
type Result struct {
	Transactions []domain.Transaction
	Dropped      []RowParseError
	Columns      map[string]string // field -> source header, for diagnostics
}

// ReadCSV reads a whole CSV into a Table. Blank lines are skipped and
// rows may be shorter or longer than the header.
func ReadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if peek, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(peek, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Missing: []string{FieldDate, FieldDescription}}
	}
	if err != nil {
		return nil, fmt.Errorf("ReadCSV: reading header: %w", err)
	}

	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: %w", err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Normalize resolves the table's columns and converts every row. It fails
// only with a *SchemaError; unparsable rows are dropped and reported.
func Normalize(t *Table) (*Result, error) {
	if t == nil {
		return nil, &SchemaError{Missing: []string{FieldDate, FieldDescription}}
	}

	cols := resolveColumns(t.Header)

	var missing []string
	if !cols.has(FieldDate) {
		missing = append(missing, FieldDate)
	}
	if !cols.has(FieldDescription) {
		missing = append(missing, FieldDescription)
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing, Header: t.Header}
	}

	useAmount := cols.has(FieldAmount)
	if !useAmount && !cols.has(FieldDebit) && !cols.has(FieldCredit) {
		return nil, &SchemaError{Missing: []string{FieldAmount}, Header: t.Header}
	}

	res := &Result{
		Transactions: make([]domain.Transaction, 0, len(t.Rows)),
		Columns:      make(map[string]string),
	}
	for field, idx := range cols {
		if idx >= 0 {
			res.Columns[field] = t.Header[idx]
		}
	}

	for i, row := range t.Rows {
		line := i + 2
		if isBlank(row) {
			continue
		}

		rawDate := cell(row, cols[FieldDate])
		date, ok := ParseDate(rawDate)
		if !ok {
			res.Dropped = append(res.Dropped, RowParseError{Line: line, Field: FieldDate, Value: rawDate})
			continue
		}

		var amount decimal.Decimal
		if useAmount {
			raw := cell(row, cols[FieldAmount])
			amount, ok = ParseAmount(raw)
			if !ok {
				res.Dropped = append(res.Dropped, RowParseError{Line: line, Field: FieldAmount, Value: raw})
				continue
			}
		} else {
			debit, _ := ParseAmount(cell(row, cols[FieldDebit]))
			credit, _ := ParseAmount(cell(row, cols[FieldCredit]))
			amount = credit.Sub(debit)
		}

		res.Transactions = append(res.Transactions, domain.Transaction{
			Date:        date,
			Description: strings.TrimSpace(cell(row, cols[FieldDescription])),
			Amount:      amount.InexactFloat64(),
		})
	}

	return res, nil
}

// ToTable renders canonical transactions back to a {date, description, amount} table.
func ToTable(txs []domain.Transaction) *Table {
	t := &Table{Header: []string{FieldDate, FieldDescription, FieldAmount}}
	for _, tx := range txs {
		t.Rows = append(t.Rows, []string{
			tx.Date.Format(domain.DateLayout),
			tx.Description,
			decimal.NewFromFloat(tx.Amount).String(),
		})
	}
	return t
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
