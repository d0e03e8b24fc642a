package normalize

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNormalize(t *testing.T, csvText string) *Result {
	t.Helper()
	table, err := ReadCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	res, err := Normalize(table)
	require.NoError(t, err)
	return res
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize_CanonicalHeaders(t *testing.T) {
	res := mustNormalize(t, "Date,Description,Amount\n2025-01-03,TESCO STORES,-12.50\n2025-01-04,SALARY,2000\n")

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, date(2025, 1, 3), res.Transactions[0].Date)
	assert.Equal(t, "TESCO STORES", res.Transactions[0].Description)
	assert.Equal(t, -12.50, res.Transactions[0].Amount)
	assert.Equal(t, 2000.0, res.Transactions[1].Amount)
	assert.Empty(t, res.Dropped)
}

func TestNormalize_AliasHeadersAndBOM(t *testing.T) {
	res := mustNormalize(t, "\ufeffTransaction Date,Narrative,Amount (GBP)\n03/02/2025,Pret A Manger,-4.20\n")

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, date(2025, 2, 3), res.Transactions[0].Date)
	assert.Equal(t, "Pret A Manger", res.Transactions[0].Description)
	assert.Equal(t, -4.20, res.Transactions[0].Amount)
	assert.Equal(t, "Transaction Date", res.Columns[FieldDate])
}

func TestNormalize_DebitCreditSplit(t *testing.T) {
	res := mustNormalize(t, strings.Join([]string{
		"Date,Details,Money Out,Money In",
		"2025-03-01,Rent,750.00,",
		"2025-03-02,Refund,,20.10",
		"2025-03-03,Both,5.00,7.25",
	}, "\n"))

	require.Len(t, res.Transactions, 3)
	assert.Equal(t, -750.0, res.Transactions[0].Amount)
	assert.Equal(t, 20.10, res.Transactions[1].Amount)
	assert.Equal(t, 2.25, res.Transactions[2].Amount)
}

func TestNormalize_CreditOnly(t *testing.T) {
	res := mustNormalize(t, "date,memo,paid in\n2025-03-02,Gift,10.00\n")
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, 10.0, res.Transactions[0].Amount)
}

func TestNormalize_ExactAliasBeatsSubstring(t *testing.T) {
	// "description" is contained in "transaction description" but the
	// exact column must win.
	res := mustNormalize(t, "date,transaction description,description,amount\n2025-01-01,long,short,-1\n")
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "short", res.Transactions[0].Description)
}

func TestNormalize_SubstringMatch(t *testing.T) {
	res := mustNormalize(t, "booking date,merchant name,amount in gbp\n2025-01-01,Costa,-3\n")
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Costa", res.Transactions[0].Description)
	assert.Equal(t, -3.0, res.Transactions[0].Amount)
}

func TestNormalize_DateColumnNotReusedForAmount(t *testing.T) {
	// "value" would match "value date" by substring; debit/credit must be used.
	res := mustNormalize(t, "value date,narrative,paid out,paid in\n2025-05-01,Coffee,2.50,\n")
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, -2.50, res.Transactions[0].Amount)
}

func TestNormalize_DropsUnparsableRows(t *testing.T) {
	res := mustNormalize(t, strings.Join([]string{
		"date,description,amount",
		"2025-01-01,ok,-1.00",
		"not a date,bad date,-2.00",
		"2025-01-03,bad amount,abc",
		"",
		"2025-01-04,currency formatted,\"£1,234.56\"",
	}, "\n"))

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, 1234.56, res.Transactions[1].Amount)
	require.Len(t, res.Dropped, 2)
	assert.Equal(t, RowParseError{Line: 3, Field: FieldDate, Value: "not a date"}, res.Dropped[0])
	assert.Equal(t, FieldAmount, res.Dropped[1].Field)
	assert.Equal(t, 4, res.Dropped[1].Line)
}

func TestNormalize_DuplicatesPassThrough(t *testing.T) {
	res := mustNormalize(t, "date,description,amount\n2025-01-01,x,-1\n2025-01-01,x,-1\n")
	assert.Len(t, res.Transactions, 2)
}

func TestNormalize_SchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		missing []string
	}{
		{"no date", "description,amount\nx,1\n", []string{FieldDate}},
		{"no description", "date,amount\n2025-01-01,1\n", []string{FieldDescription}},
		{"neither", "foo,bar\n1,2\n", []string{FieldDate, FieldDescription}},
		{"no amount signal", "date,description,balance\n2025-01-01,x,10\n", []string{FieldAmount}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadCSV(strings.NewReader(tt.csv))
			require.NoError(t, err)

			_, err = Normalize(table)
			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "got %v", err)
			assert.Equal(t, tt.missing, schemaErr.Missing)
		})
	}
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestNormalize_IdempotentOnCanonicalTable(t *testing.T) {
	first := mustNormalize(t, strings.Join([]string{
		"Posted Date,Reference,Debit,Credit",
		"01/04/2025,Tesco,12.30,",
		"02/04/2025,Salary,,1500.00",
		"03/04/2025,Deliveroo,8.99,",
	}, "\n"))

	second, err := Normalize(ToTable(first.Transactions))
	require.NoError(t, err)
	third, err := Normalize(ToTable(second.Transactions))
	require.NoError(t, err)

	assert.Equal(t, first.Transactions, second.Transactions)
	assert.Equal(t, second.Transactions, third.Transactions)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-01-31", date(2025, 1, 31), true},
		{"2025-01-31T10:11:12Z", date(2025, 1, 31), true},
		{"31/01/2025", date(2025, 1, 31), true},
		{"1/2/2025", date(2025, 2, 1), true},
		{"31 Jan 2025", date(2025, 1, 31), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"-12.50", "-12.5", true},
		{"+3", "3", true},
		{" £1,000.00 ", "1000", true},
		{"$5", "5", true},
		{"", "0", false},
		{"n/a", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
