package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/analysis"
)

func sampleTable() activity.Table {
	return activity.NewTable([]activity.Activity{
		{
			ID: 1, Name: "Easy", Type: "Run",
			Date:       time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
			DistanceKm: 5, DurationMin: 25, Pace: activity.ComputePace(25, 5),
			ElevationM: 30,
		},
		{
			ID: 2, Name: "Long", Type: "Run",
			Date:       time.Date(2024, 2, 4, 8, 0, 0, 0, time.UTC),
			DistanceKm: 15, DurationMin: 90, Pace: activity.ComputePace(90, 15),
			ElevationM: 120,
		},
	})
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	generated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := Write(&buf, sampleTable(), Options{Locale: "en", GeneratedAt: generated})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Strava Running Report",
		"_Generated 2024-03-01 12:00:00_",
		"Filter: all activities",
		"| Total runs | 2 |",
		"| Total distance | 20.0 km |",
		"| Total time | 1:55:00 |",
		"## Monthly",
		"```mermaid",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestWriteEmptySelection(t *testing.T) {
	var buf bytes.Buffer

	err := Write(&buf, sampleTable(), Options{Selection: analysis.Selection{Year: 2019}})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "| Total runs | N/A |") {
		t.Errorf("empty report should show N/A KPIs\n%s", out)
	}
	if strings.Contains(out, "```mermaid") {
		t.Errorf("empty report should have no mermaid blocks\n%s", out)
	}
	if strings.Contains(out, "## Monthly") {
		t.Errorf("empty report should have no monthly table\n%s", out)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "report.md")

	if err := WriteFile(path, sampleTable(), Options{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("# ")) {
		t.Errorf("report does not start with a heading: %q", data[:20])
	}
}

func TestDescribeSelection(t *testing.T) {
	got := describeSelection(analysis.Selection{Year: 2024, Month: 3}, "en")
	if !strings.HasPrefix(got, "year 2024, month ") {
		t.Errorf("describeSelection = %q", got)
	}
}
