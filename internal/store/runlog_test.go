package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// setupTestRunLog creates an in-memory run log for testing
func setupTestRunLog(t *testing.T) *RunLog {
	t.Helper()

	l, err := NewTestRunLog()
	if err != nil {
		t.Fatalf("Failed to open test run log: %v", err)
	}
	t.Cleanup(func() {
		l.Close()
	})
	return l
}

func TestLatestRunEmpty(t *testing.T) {
	l := setupTestRunLog(t)

	if _, err := l.LatestRun(); !errors.Is(err, ErrNoRuns) {
		t.Errorf("LatestRun() error = %v, want ErrNoRuns", err)
	}
	at, err := l.LastRunAt()
	if err != nil || !at.IsZero() {
		t.Errorf("LastRunAt() = %v, %v, want zero time", at, err)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	l := setupTestRunLog(t)
	base := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

	runs := []Run{
		{ID: "a", StartedAt: base, FinishedAt: base.Add(3 * time.Second), Status: RunSuccess, Pages: 3, Fetched: 100, Rows: 98, Dropped: 2, OutputPath: "/data/activities.csv"},
		{ID: "b", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + 500*time.Millisecond), Status: RunFailed, Error: "auth failure"},
		{ID: "c", StartedAt: base.Add(2 * time.Hour), FinishedAt: base.Add(2*time.Hour + time.Second), Status: RunPartial, Pages: 2, Fetched: 50, Rows: 50},
	}
	for _, r := range runs {
		if err := l.RecordRun(r); err != nil {
			t.Fatalf("RecordRun(%s) error = %v", r.ID, err)
		}
	}

	got, err := l.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListRuns() len = %d, want 3", len(got))
	}
	if got[0].ID != "c" || got[2].ID != "a" {
		t.Errorf("order = %s,%s,%s, want newest first", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[2].Fetched != 100 || got[2].Rows != 98 || got[2].Dropped != 2 || got[2].OutputPath != "/data/activities.csv" {
		t.Errorf("run a = %+v", got[2])
	}
	if got[2].Duration() != 3*time.Second {
		t.Errorf("Duration() = %v", got[2].Duration())
	}
	if got[1].Error != "auth failure" || got[1].Status != RunFailed {
		t.Errorf("run b = %+v", got[1])
	}

	limited, err := l.ListRuns(2)
	if err != nil || len(limited) != 2 {
		t.Errorf("ListRuns(2) = %d runs, %v", len(limited), err)
	}

	latest, err := l.LatestRun()
	if err != nil || latest.ID != "c" {
		t.Errorf("LatestRun() = %+v, %v", latest, err)
	}

	at, err := l.LastRunAt()
	if err != nil || !at.Equal(runs[2].FinishedAt) {
		t.Errorf("LastRunAt() = %v, %v", at, err)
	}
	if p, _ := l.GetSyncState(KeyLastCSVPath); p != "/data/activities.csv" {
		t.Errorf("last csv path = %q", p)
	}
}

func TestSubSecondOrdering(t *testing.T) {
	l := setupTestRunLog(t)
	base := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

	l.RecordRun(Run{ID: "whole", StartedAt: base, FinishedAt: base, Status: RunSuccess})
	l.RecordRun(Run{ID: "later", StartedAt: base.Add(500 * time.Millisecond), FinishedAt: base, Status: RunSuccess})

	latest, err := l.LatestRun()
	if err != nil || latest.ID != "later" {
		t.Errorf("LatestRun() = %q, %v, want later", latest.ID, err)
	}
}

func TestSyncState(t *testing.T) {
	l := setupTestRunLog(t)

	v, err := l.GetSyncState("missing")
	if err != nil || v != "" {
		t.Errorf("GetSyncState(missing) = %q, %v", v, err)
	}

	if err := l.SetSyncState("k", "1"); err != nil {
		t.Fatal(err)
	}
	if err := l.SetSyncState("k", "2"); err != nil {
		t.Fatal(err)
	}
	if v, _ := l.GetSyncState("k"); v != "2" {
		t.Errorf("GetSyncState(k) = %q, want 2", v)
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "runs.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	if err := l.RecordRun(Run{ID: "x", StartedAt: time.Now(), FinishedAt: time.Now(), Status: RunEmpty}); err != nil {
		t.Errorf("RecordRun() error = %v", err)
	}
}
