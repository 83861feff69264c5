package store

import (
	"database/sql"
	"errors"
)

// Sync state keys
const (
	KeyLastRunAt   = "last_etl_run"
	KeyLastRunID   = "last_etl_run_id"
	KeyLastCSVPath = "last_csv_path"
)

// GetSyncState retrieves a sync state value by key
// Returns empty string if key doesn't exist
func (l *RunLog) GetSyncState(key string) (string, error) {
	var value string
	err := l.db.QueryRow(`
		SELECT value FROM sync_state WHERE key = ?
	`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSyncState sets a sync state value
func (l *RunLog) SetSyncState(key, value string) error {
	_, err := l.db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}
