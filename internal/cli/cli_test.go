package cli

import (
	"path/filepath"
	"slices"
	"testing"
	"time"

	"strava-dashboard/internal/config"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name        string
		from, to    string
		wantFrom    time.Time
		wantTo      time.Time
		expectError bool
	}{
		{name: "empty"},
		{
			name:     "both",
			from:     "2024-01-01",
			to:       "2024-03-31",
			wantFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "same day",
			from:     "2024-02-10",
			to:       "2024-02-10",
			wantFrom: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		},
		{name: "bad from", from: "01/02/2024", expectError: true},
		{name: "bad to", to: "2024-13-01", expectError: true},
		{name: "reversed", from: "2024-03-01", to: "2024-02-01", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := parseRange(tt.from, tt.to)
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !from.Equal(tt.wantFrom) || !to.Equal(tt.wantTo) {
				t.Errorf("parseRange = (%v, %v), want (%v, %v)", from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestPersistRefreshToken(t *testing.T) {
	dir := t.TempDir()
	configPath = filepath.Join(dir, "config.json")
	t.Cleanup(func() { configPath = "" })

	d := config.DefaultConfig()
	running := &d
	running.Strava.ClientID = "12345"
	running.Strava.ClientSecret = "secret"

	// No file and no create: nothing written
	if err := persistRefreshToken(running, "rt-1", false); err != nil {
		t.Fatalf("persistRefreshToken: %v", err)
	}
	if _, err := config.Load(configPath); err != config.ErrNoConfig {
		t.Fatalf("config file written without create, err = %v", err)
	}

	// Login creates the file
	if err := persistRefreshToken(running, "rt-2", true); err != nil {
		t.Fatalf("persistRefreshToken create: %v", err)
	}
	saved, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.Strava.RefreshToken != "rt-2" || saved.Strava.ClientID != "12345" {
		t.Errorf("saved strava config = %+v", saved.Strava)
	}

	// Rotation keeps other file values
	saved.Fetch.PerPage = 120
	if err := config.Save(saved, configPath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := persistRefreshToken(running, "rt-3", false); err != nil {
		t.Fatalf("persistRefreshToken rotate: %v", err)
	}
	rotated, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rotated.Strava.RefreshToken != "rt-3" || rotated.Fetch.PerPage != 120 {
		t.Errorf("rotated config = %+v / %+v", rotated.Strava, rotated.Fetch)
	}
}

func TestNewPipelineRequiresCredentials(t *testing.T) {
	d := config.DefaultConfig()
	if _, err := newPipeline(&d, nil); err == nil {
		t.Error("expected error for missing credentials")
	}

	d.Strava.ClientID = "1"
	d.Strava.ClientSecret = "s"
	d.Strava.RefreshToken = "r"
	p, err := newPipeline(&d, nil)
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}
	if p.Credentials.RefreshToken != "r" || p.NewFetcher == nil {
		t.Errorf("pipeline = %+v", p)
	}

	opts := runOptions(&d)
	if opts.PerPage != 50 || opts.MaxPages != 20 || opts.OutputPath != d.CSVPath() {
		t.Errorf("runOptions = %+v", opts)
	}
}

func TestETLOptions(t *testing.T) {
	tests := []struct {
		name         string
		flags        etlFlags
		changed      []string
		wantPerPage  int
		wantMaxPages int
		expectError  bool
	}{
		{name: "no overrides", wantPerPage: 50, wantMaxPages: 20},
		{name: "within bounds", flags: etlFlags{perPage: 200, maxPages: 1}, changed: []string{"per-page", "max-pages"}, wantPerPage: 200, wantMaxPages: 1},
		{name: "per page too large", flags: etlFlags{perPage: 500}, changed: []string{"per-page"}, expectError: true},
		{name: "max pages too large", flags: etlFlags{maxPages: 51}, changed: []string{"max-pages"}, expectError: true},
		{name: "explicit zero", flags: etlFlags{perPage: 0}, changed: []string{"per-page"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := config.DefaultConfig()
			changed := func(name string) bool { return slices.Contains(tt.changed, name) }

			opts, err := etlOptions(&base, tt.flags, changed)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got options %+v", opts)
				}
				return
			}
			if err != nil {
				t.Fatalf("etlOptions() error = %v", err)
			}
			if opts.PerPage != tt.wantPerPage || opts.MaxPages != tt.wantMaxPages {
				t.Errorf("options = %d/%d, want %d/%d", opts.PerPage, opts.MaxPages, tt.wantPerPage, tt.wantMaxPages)
			}
			if base.Fetch.PerPage != 50 {
				t.Errorf("base config modified: per_page = %d", base.Fetch.PerPage)
			}
		})
	}
}
