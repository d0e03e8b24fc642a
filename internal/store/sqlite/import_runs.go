package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/store"
	"github.com/google/uuid"
)

// StartImportRun inserts a RUNNING import run and returns its id.
func (s *Store) StartImportRun(ctx context.Context, userID, source string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO import_runs(id, user_id, source, status, started_at)
	VALUES(?, ?, ?, ?, ?)`,
		id, userID, source, string(domain.ImportRunning), s.now().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("StartImportRun: %w", err)
	}
	return id, nil
}

// MarkImportRunSucceeded sets status=SUCCESS with the final counts.
func (s *Store) MarkImportRunSucceeded(ctx context.Context, runID string, imported, dropped int) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE import_runs
	SET status = ?, imported = ?, dropped = ?, error_message = '', finished_at = ?
	WHERE id = ?`,
		string(domain.ImportSucceeded), imported, dropped, s.now().Format(timeLayout), runID)
	if err != nil {
		return fmt.Errorf("MarkImportRunSucceeded: %w", err)
	}
	return requireOneRow(res)
}

// MarkImportRunFailed sets status=FAILED and keeps a truncated error message.
func (s *Store) MarkImportRunFailed(ctx context.Context, runID string, runErr error) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE import_runs
	SET status = ?, error_message = ?, finished_at = ?
	WHERE id = ?`,
		string(domain.ImportFailed), store.TruncateError(runErr), s.now().Format(timeLayout), runID)
	if err != nil {
		return fmt.Errorf("MarkImportRunFailed: %w", err)
	}
	return requireOneRow(res)
}

// ListImportRuns returns the user's most recent runs first.
func (s *Store) ListImportRuns(ctx context.Context, userID string, limit int) ([]domain.ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, user_id, source, status, imported, dropped, error_message, started_at, finished_at
	FROM import_runs
	WHERE user_id = ?
	ORDER BY started_at DESC, id DESC
	LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListImportRuns: query: %w", err)
	}
	defer rows.Close()

	var out []domain.ImportRun
	for rows.Next() {
		var (
			r        domain.ImportRun
			status   string
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Source, &status, &r.Imported, &r.Dropped, &r.ErrorMessage, &started, &finished); err != nil {
			return nil, fmt.Errorf("ListImportRuns: scan: %w", err)
		}
		r.Status = domain.ImportRunStatus(status)
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("ListImportRuns: started_at: %w", err)
		}
		if finished.Valid {
			f, err := parseTime(finished.String)
			if err != nil {
				return nil, fmt.Errorf("ListImportRuns: finished_at: %w", err)
			}
			r.FinishedAt = &f
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListImportRuns: rows: %w", err)
	}
	return out, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
