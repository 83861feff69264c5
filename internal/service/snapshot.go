package service

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/metrics"
	"strava-dashboard/internal/store"
)

// SnapshotState is one loaded table and how it was obtained
type SnapshotState struct {
	Table    activity.Table
	LoadedAt time.Time
	Warning  error // non-nil when the file was missing or corrupt and Table is empty
}

// Snapshot holds the table the dashboard reads. Readers always see a whole
// table; a reload swaps in a new one.
type Snapshot struct {
	path  string
	state atomic.Pointer[SnapshotState]
}

// NewSnapshot creates a holder for the table at path, initially empty
func NewSnapshot(path string) *Snapshot {
	s := &Snapshot{path: path}
	s.state.Store(&SnapshotState{})
	return s
}

// Path returns the table file location
func (s *Snapshot) Path() string {
	return s.path
}

// Load reads the table file. A missing or corrupt file installs an empty
// table and the returned error is a warning only.
func (s *Snapshot) Load() error {
	t, err := store.LoadOrEmpty(s.path)
	s.store(&SnapshotState{Table: t, LoadedAt: time.Now(), Warning: err})
	return err
}

// Reload re-reads the table file. Unlike Load, a failed read keeps the
// current table so a bad file cannot blank a working dashboard.
func (s *Snapshot) Reload() error {
	t, err := store.LoadCSV(s.path)
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Reload failed, keeping current table")
		return err
	}
	s.store(&SnapshotState{Table: t, LoadedAt: time.Now()})
	return nil
}

// Replace installs t directly, e.g. the table an ETL run just wrote
func (s *Snapshot) Replace(t activity.Table) {
	s.store(&SnapshotState{Table: t, LoadedAt: time.Now()})
}

// Current returns the current table
func (s *Snapshot) Current() activity.Table {
	return s.state.Load().Table
}

// State returns the current table with its load metadata
func (s *Snapshot) State() SnapshotState {
	return *s.state.Load()
}

func (s *Snapshot) store(st *SnapshotState) {
	s.state.Store(st)
	metrics.SetTableRows(st.Table.Len())
	log.Debug().Int("rows", st.Table.Len()).Str("path", s.path).Msg("Installed activity table")
}
