package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/store"
)

const transactionsTable = "transactions"

var _ store.TransactionStore = (*Warehouse)(nil)

// Warehouse mirrors imported transactions into BigQuery for analytics.
// It holds a shared client to avoid creating a connection per operation.
type Warehouse struct {
	client    *bigquery.Client
	projectID string
	datasetID string

	now   func() time.Time
	newID func() string
}

// NewWarehouse creates a BigQuery client for projectID and targets datasetID.
func NewWarehouse(ctx context.Context, projectID, datasetID string, opts ...option.ClientOption) (*Warehouse, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewWarehouse: creating client: %w", err)
	}
	return NewWarehouseWithClient(client, projectID, datasetID), nil
}

// NewWarehouseWithClient wraps an existing client.
func NewWarehouseWithClient(client *bigquery.Client, projectID, datasetID string) *Warehouse {
	return &Warehouse{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Close closes the BigQuery client connection.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// table returns the fully qualified, backtick-quoted table name.
func (w *Warehouse) table(name string) string {
	return "`" + w.projectID + "." + w.datasetID + "." + name + "`"
}

// rowParam is the STRUCT element of the @rows array parameter.
type rowParam struct {
	TransactionID   string     `bigquery:"transaction_id"`
	UserID          string     `bigquery:"user_id"`
	Seq             int64      `bigquery:"seq"`
	TransactionDate civil.Date `bigquery:"transaction_date"`
	Description     string     `bigquery:"description"`
	Amount          *big.Rat   `bigquery:"amount"`
	Category        string     `bigquery:"category"`
	ImportedTS      time.Time  `bigquery:"imported_ts"`
}

// WriteTransactions mirrors txs for userID. Rows are written with DML
// rather than the streaming inserter so that a later replace can delete
// them immediately. With replace set, the delete and insert run as one
// multi-statement transaction.
func (w *Warehouse) WriteTransactions(ctx context.Context, userID string, txs []domain.Transaction, replace bool) (int, error) {
	if !replace && len(txs) == 0 {
		return 0, nil
	}

	imported := w.now()
	params := make([]rowParam, 0, len(txs))
	for i, t := range txs {
		r := NewTransactionRow(w.newID(), userID, int64(i), t, imported)
		params = append(params, rowParam{
			TransactionID:   r.TransactionID,
			UserID:          r.UserID,
			Seq:             r.Seq,
			TransactionDate: r.TransactionDate,
			Description:     r.Description,
			Amount:          r.Amount,
			Category:        r.Category.StringVal,
			ImportedTS:      r.ImportedTS,
		})
	}

	q := w.client.Query(writeScript(w.table(transactionsTable), replace, len(params) > 0))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}
	if len(params) > 0 {
		q.Parameters = append(q.Parameters, bigquery.QueryParameter{Name: "rows", Value: params})
	}

	if err := runAndWait(ctx, q); err != nil {
		return 0, fmt.Errorf("WriteTransactions: %w", err)
	}
	return len(txs), nil
}

// writeScript builds the DML for a mirror write.
func writeScript(table string, replace, insert bool) string {
	var b strings.Builder
	if replace {
		b.WriteString("BEGIN TRANSACTION;\n")
		fmt.Fprintf(&b, "DELETE FROM %s WHERE user_id = @user_id;\n", table)
	}
	if insert {
		fmt.Fprintf(&b, `INSERT INTO %s (transaction_id, user_id, seq, transaction_date, description, amount, category, imported_ts)
SELECT transaction_id, user_id, seq, transaction_date, description, amount, category, imported_ts
FROM UNNEST(@rows);
`, table)
	}
	if replace {
		b.WriteString("COMMIT TRANSACTION;\n")
	}
	return b.String()
}

// LoadTransactions reads the user's mirrored rows ordered by date. Ids are
// assigned 1..n in that order.
func (w *Warehouse) LoadTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	q := w.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			seq,
			transaction_date,
			description,
			amount,
			category,
			imported_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY transaction_date, imported_ts, seq
	`, w.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LoadTransactions: query read: %w", err)
	}

	var txs []domain.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LoadTransactions: iter next: %w", err)
		}
		txs = append(txs, r.Transaction(int64(len(txs)+1)))
	}
	return txs, nil
}

func runAndWait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
