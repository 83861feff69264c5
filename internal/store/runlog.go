package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// fixed width so lexical order equals time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordRun inserts a run, replacing any row with the same ID, and updates
// the last-run sync keys.
func (l *RunLog) RecordRun(r Run) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO etl_runs
			(id, started_at, finished_at, status, pages, fetched, rows_written, dropped, output_path, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout), string(r.Status),
		r.Pages, r.Fetched, r.Rows, r.Dropped, r.OutputPath, r.Error)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	state := map[string]string{
		KeyLastRunAt: r.FinishedAt.UTC().Format(timeLayout),
		KeyLastRunID: r.ID,
	}
	if r.OutputPath != "" {
		state[KeyLastCSVPath] = r.OutputPath
	}
	for k, v := range state {
		if _, err := tx.Exec(`
			INSERT INTO sync_state (key, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = CURRENT_TIMESTAMP
		`, k, v); err != nil {
			return fmt.Errorf("updating sync state %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// LatestRun returns the most recently started run
func (l *RunLog) LatestRun() (Run, error) {
	runs, err := l.ListRuns(1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (l *RunLog) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, finished_at, status, pages, fetched, rows_written, dropped, output_path, error
		FROM etl_runs
		ORDER BY started_at DESC, id DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = l.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = l.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LastRunAt returns when the last run finished, or the zero time
func (l *RunLog) LastRunAt() (time.Time, error) {
	v, err := l.GetSyncState(KeyLastRunAt)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", KeyLastRunAt, err)
	}
	return t, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		r                 Run
		started, finished string
		status            string
	)
	if err := rows.Scan(&r.ID, &started, &finished, &status, &r.Pages, &r.Fetched,
		&r.Rows, &r.Dropped, &r.OutputPath, &r.Error); err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, errors.Join(ErrCorrupt, fmt.Errorf("run %s started_at: %w", r.ID, err))
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, errors.Join(ErrCorrupt, fmt.Errorf("run %s finished_at: %w", r.ID, err))
	}
	r.Status = RunStatus(status)
	return r, nil
}
