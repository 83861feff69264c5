package store

import "time"

// RunStatus is the outcome of one ETL run
type RunStatus string

const (
	RunSuccess RunStatus = "success" // every page fetched, table written
	RunPartial RunStatus = "partial" // a page failed, partial table written
	RunEmpty   RunStatus = "empty"   // nothing fetched, nothing written
	RunFailed  RunStatus = "failed"  // aborted, nothing written
)

// Run is one row of the ETL run history
type Run struct {
	ID         string    `db:"id"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Status     RunStatus `db:"status"`
	Pages      int       `db:"pages"`
	Fetched    int       `db:"fetched"`
	Rows       int       `db:"rows_written"`
	Dropped    int       `db:"dropped"`
	OutputPath string    `db:"output_path"`
	Error      string    `db:"error"`
}

// Duration returns how long the run took
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
