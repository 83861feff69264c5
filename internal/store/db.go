package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNoRuns is returned when the run log holds no runs
var ErrNoRuns = errors.New("no etl runs recorded")

// RunLog records ETL run history and small key/value state in SQLite.
// The activity table itself lives in the CSV file, not here.
type RunLog struct {
	db *sql.DB
}

// Open opens the run log database at path, creating it if necessary.
// ":memory:" opens a private in-memory database.
func Open(path string) (*RunLog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &RunLog{db: db}, nil
}

// Close closes the underlying database connection.
func (l *RunLog) Close() error {
	return l.db.Close()
}
