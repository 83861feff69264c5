package activity

import (
	"fmt"
	"math"
	"time"
)

// Columns is the canonical header of the activity table, in file order.
// External consumers depend on these exact names.
var Columns = []string{
	"id",
	"name",
	"type",
	"date",
	"distance_km",
	"duration_min",
	"elevation_m",
	"avg_speed_kmh",
	"max_speed_kmh",
	"calories",
	"kudos",
	"polyline",
	"pace_min_km",
	"date_only",
	"month_period",
}

// DateLayout is how dates are written to the table file
const DateLayout = "2006-01-02 15:04:05"

// DayLayout is the date_only column layout
const DayLayout = "2006-01-02"

// Activity is one normalized row of the activity table
type Activity struct {
	ID          int64
	Name        string
	Type        string
	Date        time.Time // local wall-clock time, second precision, UTC location
	DistanceKm  float64
	DurationMin float64
	Pace        *float64 // min/km; nil when distance is zero
	ElevationM  float64
	AvgSpeedKmh float64
	MaxSpeedKmh float64
	Calories    float64
	Kudos       int
	Polyline    string
}

// HasPace reports whether the activity has a defined pace
func (a Activity) HasPace() bool {
	return a.Pace != nil
}

// PaceValue returns the pace, or 0 when undefined
func (a Activity) PaceValue() float64 {
	if a.Pace == nil {
		return 0
	}
	return *a.Pace
}

// Period returns the activity's month grouping key
func (a Activity) Period() Period {
	return PeriodOf(a.Date)
}

// DateOnly returns the calendar day as YYYY-MM-DD
func (a Activity) DateOnly() string {
	return a.Date.Format(DayLayout)
}

// Period is a year+month grouping key formatted as YYYY-MM.
// String order equals chronological order for years 0000-9999.
type Period string

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) Period {
	return Period(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// Year returns the period's year
func (p Period) Year() int {
	t, err := time.Parse("2006-01", string(p))
	if err != nil {
		return 0
	}
	return t.Year()
}

// Month returns the period's calendar month (1-12)
func (p Period) Month() int {
	t, err := time.Parse("2006-01", string(p))
	if err != nil {
		return 0
	}
	return int(t.Month())
}

// Round1 rounds to one decimal place, half away from zero
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ComputePace returns duration/distance rounded to one decimal,
// or nil when distance is not positive.
func ComputePace(durationMin, distanceKm float64) *float64 {
	if distanceKm <= 0 {
		return nil
	}
	p := Round1(durationMin / distanceKm)
	return &p
}
