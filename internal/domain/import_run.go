package domain

import "time"

// ImportRunStatus is the lifecycle state of a CSV import.
type ImportRunStatus string

const (
	ImportRunning   ImportRunStatus = "RUNNING"
	ImportSucceeded ImportRunStatus = "SUCCESS"
	ImportFailed    ImportRunStatus = "FAILED"
)

// ImportRun records one attempt to import a statement for a user.
type ImportRun struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Source       string          `json:"source"`
	Status       ImportRunStatus `json:"status"`
	Imported     int             `json:"imported"`
	Dropped      int             `json:"dropped"`
	ErrorMessage string          `json:"error_message,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}
