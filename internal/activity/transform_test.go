package activity

import (
	"math"
	"testing"
	"time"

	"strava-dashboard/internal/strava"
)

func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }
func stringPtr(v string) *string  { return &v }
func intPtr(v int) *int           { return &v }

func TestTransformEndToEndExample(t *testing.T) {
	raw := []strava.RawActivity{
		{ID: int64Ptr(1), Distance: floatPtr(5000), MovingTime: floatPtr(1500), StartDateLocal: stringPtr("2024-01-10T08:00:00")},
		{ID: int64Ptr(2), Distance: floatPtr(0), MovingTime: floatPtr(300), StartDateLocal: stringPtr("2024-02-05T08:00:00")},
	}

	table, stats := Transform(raw)

	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", table.Len())
	}
	if stats.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", stats.Dropped())
	}

	wantDistance := []float64{5.0, 0.0}
	wantDuration := []float64{25.0, 5.0}
	for i := 0; i < 2; i++ {
		a := table.At(i)
		if a.DistanceKm != wantDistance[i] {
			t.Errorf("row %d distance_km = %v, want %v", i, a.DistanceKm, wantDistance[i])
		}
		if a.DurationMin != wantDuration[i] {
			t.Errorf("row %d duration_min = %v, want %v", i, a.DurationMin, wantDuration[i])
		}
	}

	if p := table.At(0).Pace; p == nil || *p != 5.0 {
		t.Errorf("row 0 pace = %v, want 5.0", p)
	}
	if table.At(1).Pace != nil {
		t.Errorf("row 1 pace = %v, want undefined", *table.At(1).Pace)
	}
}

func TestTransformZeroDistanceNeverHasPace(t *testing.T) {
	tests := []struct {
		name     string
		distance *float64
		moving   *float64
	}{
		{"zero distance", floatPtr(0), floatPtr(600)},
		{"missing distance", nil, floatPtr(600)},
		{"negative distance", floatPtr(-100), floatPtr(600)},
		{"rounds to zero", floatPtr(40), floatPtr(600)},
		{"zero everything", floatPtr(0), floatPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []strava.RawActivity{{
				ID:             int64Ptr(7),
				Distance:       tt.distance,
				MovingTime:     tt.moving,
				StartDateLocal: stringPtr("2024-05-01T07:00:00Z"),
			}}
			table, _ := Transform(raw)
			if table.Len() != 1 {
				t.Fatalf("rows = %d, want 1", table.Len())
			}
			a := table.At(0)
			if a.Pace != nil {
				t.Errorf("pace = %v, want undefined", *a.Pace)
			}
			if a.DistanceKm < 0 || a.DurationMin < 0 {
				t.Errorf("negative values: distance=%v duration=%v", a.DistanceKm, a.DurationMin)
			}
		})
	}
}

func TestTransformDefaultsMissingFields(t *testing.T) {
	raw := []strava.RawActivity{{
		ID:             int64Ptr(42),
		StartDateLocal: stringPtr("2023-11-20T18:30:15Z"),
	}}

	table, stats := Transform(raw)
	if table.Len() != 1 {
		t.Fatalf("rows = %d, want 1", table.Len())
	}
	a := table.At(0)
	if a.Name != "" || a.Type != "" || a.Polyline != "" {
		t.Errorf("text fields not empty: %+v", a)
	}
	if a.DistanceKm != 0 || a.DurationMin != 0 || a.ElevationM != 0 || a.Calories != 0 || a.Kudos != 0 {
		t.Errorf("numeric fields not zero: %+v", a)
	}
	if stats.DefaultFields != 1 {
		t.Errorf("DefaultFields = %d, want 1", stats.DefaultFields)
	}
	want := time.Date(2023, 11, 20, 18, 30, 15, 0, time.UTC)
	if !a.Date.Equal(want) {
		t.Errorf("date = %v, want %v", a.Date, want)
	}
}

func TestTransformDropsBadRecords(t *testing.T) {
	raw := []strava.RawActivity{
		{ID: int64Ptr(1), StartDateLocal: stringPtr("not a date")},
		{ID: int64Ptr(2)},
		{StartDateLocal: stringPtr("2024-01-01T00:00:00Z")},
		{ID: int64Ptr(3), StartDateLocal: stringPtr("2024-01-02T06:00:00Z")},
	}

	table, stats := Transform(raw)
	if table.Len() != 1 {
		t.Fatalf("rows = %d, want 1", table.Len())
	}
	if table.At(0).ID != 3 {
		t.Errorf("kept id = %d, want 3", table.At(0).ID)
	}
	if stats.BadDate != 2 {
		t.Errorf("BadDate = %d, want 2", stats.BadDate)
	}
	if stats.MissingID != 1 {
		t.Errorf("MissingID = %d, want 1", stats.MissingID)
	}
}

func TestTransformDeduplicatesLastWins(t *testing.T) {
	raw := []strava.RawActivity{
		{ID: int64Ptr(1), Name: stringPtr("first"), StartDateLocal: stringPtr("2024-01-01T00:00:00Z")},
		{ID: int64Ptr(2), Name: stringPtr("other"), StartDateLocal: stringPtr("2024-01-02T00:00:00Z")},
		{ID: int64Ptr(1), Name: stringPtr("renamed"), StartDateLocal: stringPtr("2024-01-01T00:00:00Z")},
	}

	table, stats := Transform(raw)
	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", table.Len())
	}
	if table.At(0).Name != "renamed" {
		t.Errorf("name = %q, want renamed", table.At(0).Name)
	}
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
}

func TestTransformLastDuplicateDecidesDate(t *testing.T) {
	tests := []struct {
		name     string
		raw      []strava.RawActivity
		wantRows int
		wantName string
	}{
		{
			name: "later record has bad date",
			raw: []strava.RawActivity{
				{ID: int64Ptr(1), Name: stringPtr("first"), StartDateLocal: stringPtr("2024-01-01T00:00:00Z")},
				{ID: int64Ptr(1), Name: stringPtr("broken"), StartDateLocal: stringPtr("garbage")},
			},
			wantRows: 0,
		},
		{
			name: "earlier record has bad date",
			raw: []strava.RawActivity{
				{ID: int64Ptr(1), Name: stringPtr("broken"), StartDateLocal: stringPtr("garbage")},
				{ID: int64Ptr(1), Name: stringPtr("fixed"), StartDateLocal: stringPtr("2024-01-01T00:00:00Z")},
			},
			wantRows: 1,
			wantName: "fixed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, stats := Transform(tt.raw)
			if table.Len() != tt.wantRows {
				t.Fatalf("rows = %d, want %d", table.Len(), tt.wantRows)
			}
			if tt.wantRows > 0 && table.At(0).Name != tt.wantName {
				t.Errorf("name = %q, want %q", table.At(0).Name, tt.wantName)
			}
			if stats.Duplicates != 1 {
				t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
			}
			if stats.Dropped()+stats.Rows != stats.Input {
				t.Errorf("stats do not add up: %+v", stats)
			}
		})
	}
}

func TestTransformUnitConversions(t *testing.T) {
	raw := []strava.RawActivity{{
		ID:                 int64Ptr(9),
		Name:               stringPtr("Morning Run"),
		Type:               stringPtr("Run"),
		StartDateLocal:     stringPtr("2024-03-15T06:45:00Z"),
		Distance:           floatPtr(10234),
		MovingTime:         floatPtr(3075),
		TotalElevationGain: floatPtr(87.4),
		AverageSpeed:       floatPtr(3.0),
		MaxSpeed:           floatPtr(4.5),
		KudosCount:         intPtr(12),
		Map:                &strava.ActivityMap{SummaryPolyline: stringPtr("abc~")},
	}}

	table, _ := Transform(raw)
	a := table.At(0)

	if a.DistanceKm != 10.2 {
		t.Errorf("distance_km = %v, want 10.2", a.DistanceKm)
	}
	if a.DurationMin != 51.3 {
		t.Errorf("duration_min = %v, want 51.3", a.DurationMin)
	}
	if a.Pace == nil || *a.Pace != 5.0 {
		t.Errorf("pace = %v, want 5.0", a.Pace)
	}
	if math.Abs(a.AvgSpeedKmh-10.8) > 1e-9 {
		t.Errorf("avg_speed_kmh = %v, want 10.8", a.AvgSpeedKmh)
	}
	if math.Abs(a.MaxSpeedKmh-16.2) > 1e-9 {
		t.Errorf("max_speed_kmh = %v, want 16.2", a.MaxSpeedKmh)
	}
	if a.Kudos != 12 || a.Polyline != "abc~" || a.ElevationM != 87.4 {
		t.Errorf("carried fields wrong: %+v", a)
	}
	if a.Period() != "2024-03" {
		t.Errorf("period = %q, want 2024-03", a.Period())
	}
	if a.DateOnly() != "2024-03-15" {
		t.Errorf("date_only = %q, want 2024-03-15", a.DateOnly())
	}
}

func TestTransformIsDeterministic(t *testing.T) {
	raw := []strava.RawActivity{
		{ID: int64Ptr(1), Distance: floatPtr(7777), MovingTime: floatPtr(2222), StartDateLocal: stringPtr("2024-01-10T08:00:00Z")},
		{ID: int64Ptr(2), Distance: floatPtr(3333), MovingTime: floatPtr(1111), StartDateLocal: stringPtr("2024-01-11T08:00:00Z")},
	}

	a, _ := Transform(raw)
	b, _ := Transform(raw)
	for i := 0; i < a.Len(); i++ {
		x, y := a.At(i), b.At(i)
		if x.ID != y.ID || x.DistanceKm != y.DistanceKm || x.DurationMin != y.DurationMin || *x.Pace != *y.Pace {
			t.Errorf("row %d differs: %+v vs %+v", i, x, y)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2024-01-10T08:00:00Z", true, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)},
		{"2024-01-10T08:00:00", true, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)},
		{"2024-01-10T08:00:00-03:00", true, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)},
		{"2024-01-10 08:00:00", true, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)},
		{"2024-01-10", true, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"", false, time.Time{}},
		{"yesterday", false, time.Time{}},
		{"2024-13-40T00:00:00Z", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
