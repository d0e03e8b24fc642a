package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// StartImportRun inserts a RUNNING import run and returns its id.
func (s *Store) StartImportRun(ctx context.Context, userID, source string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_runs(id, user_id, source, status, started_at)
		VALUES($1, $2, $3, $4, $5)`,
		id, userID, source, string(domain.ImportRunning), s.now())
	if err != nil {
		return "", fmt.Errorf("StartImportRun: %w", err)
	}
	return id, nil
}

// MarkImportRunSucceeded sets status=SUCCESS with the final counts.
func (s *Store) MarkImportRunSucceeded(ctx context.Context, runID string, imported, dropped int) error {
	if _, err := uuid.Parse(runID); err != nil {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE import_runs
		SET status = $1, imported = $2, dropped = $3, error_message = '', finished_at = $4
		WHERE id = $5`,
		string(domain.ImportSucceeded), imported, dropped, s.now(), runID)
	if err != nil {
		return fmt.Errorf("MarkImportRunSucceeded: %w", err)
	}
	return requireOneRow(tag)
}

// MarkImportRunFailed sets status=FAILED and keeps a truncated error message.
func (s *Store) MarkImportRunFailed(ctx context.Context, runID string, runErr error) error {
	if _, err := uuid.Parse(runID); err != nil {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE import_runs
		SET status = $1, error_message = $2, finished_at = $3
		WHERE id = $4`,
		string(domain.ImportFailed), store.TruncateError(runErr), s.now(), runID)
	if err != nil {
		return fmt.Errorf("MarkImportRunFailed: %w", err)
	}
	return requireOneRow(tag)
}

// ListImportRuns returns the user's most recent runs first.
func (s *Store) ListImportRuns(ctx context.Context, userID string, limit int) ([]domain.ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, user_id, source, status, imported, dropped, error_message, started_at, finished_at
		FROM import_runs
		WHERE user_id = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListImportRuns: query: %w", err)
	}
	defer rows.Close()

	var out []domain.ImportRun
	for rows.Next() {
		var (
			r      domain.ImportRun
			status string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Source, &status, &r.Imported, &r.Dropped, &r.ErrorMessage, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("ListImportRuns: scan: %w", err)
		}
		r.Status = domain.ImportRunStatus(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListImportRuns: rows: %w", err)
	}
	return out, nil
}

func requireOneRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
