package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// RunInfo is a row of the run history
type RunInfo struct {
	ID             string     `json:"id"`
	Analysis       string     `json:"analysis"`
	Status         string     `json:"status"`
	RowsRead       int        `json:"rowsRead"`
	RowsSkipped    int        `json:"rowsSkipped"`
	CellsDropped   int        `json:"cellsDropped"`
	OutputsWritten int        `json:"outputsWritten"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
}

// InitDB opens the run-tracking database and creates tables if needed
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		analysis TEXT,
		status TEXT,
		rows_read INTEGER DEFAULT 0,
		rows_skipped INTEGER DEFAULT 0,
		cells_dropped INTEGER DEFAULT 0,
		outputs_written INTEGER DEFAULT 0,
		started_at DATETIME,
		finished_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	if _, err := db.Exec(runTable); err != nil {
		return err
	}
	if _, err := db.Exec(errorTable); err != nil {
		return err
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// SaveRun records a new analysis run in pending state
func SaveRun(runID, analysis string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO runs (id, analysis, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, analysis, "pending", now)
	return err
}

// UpdateRunStatus updates the status of a run; terminal statuses also set
// the finish time
func UpdateRunStatus(runID, status string) error {
	if status == "completed" || status == "failed" {
		now := time.Now().UTC()
		_, err := db.Exec(`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`, status, now, runID)
		return err
	}
	_, err := db.Exec(`UPDATE runs SET status = ? WHERE id = ?`, status, runID)
	return err
}

// SaveRunStats persists the per-run data-quality counters, including the
// count of dropped cells so silent data loss is visible after the fact
func SaveRunStats(runID string, rowsRead, rowsSkipped, cellsDropped, outputsWritten int) error {
	_, err := db.Exec(
		`UPDATE runs SET rows_read = ?, rows_skipped = ?, cells_dropped = ?, outputs_written = ? WHERE id = ?`,
		rowsRead, rowsSkipped, cellsDropped, outputsWritten, runID)
	return err
}

// SaveRunError records an error for a run
func SaveRunError(runID string, runErr error) error {
	if runErr == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, runErr.Error(), now)
	return err
}

// ListRuns returns the run history, most recent first
func ListRuns() ([]RunInfo, error) {
	rows, err := db.Query(`
		SELECT id, analysis, status, rows_read, rows_skipped, cells_dropped, outputs_written, started_at, finished_at
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var run RunInfo
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Analysis, &run.Status,
			&run.RowsRead, &run.RowsSkipped, &run.CellsDropped, &run.OutputsWritten,
			&run.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run by ID
func GetRun(runID string) (*RunInfo, error) {
	var run RunInfo
	var finished sql.NullTime
	err := db.QueryRow(`
		SELECT id, analysis, status, rows_read, rows_skipped, cells_dropped, outputs_written, started_at, finished_at
		FROM runs WHERE id = ?`, runID).
		Scan(&run.ID, &run.Analysis, &run.Status,
			&run.RowsRead, &run.RowsSkipped, &run.CellsDropped, &run.OutputsWritten,
			&run.StartedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("run %s not found: %w", runID, err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}
