package activity

import (
	"strings"
	"time"

	"strava-dashboard/internal/strava"
)

const (
	metersPerKm      = 1000.0
	secondsPerMinute = 60.0
	msToKmh          = 3.6
)

// dateLayouts are tried in order when parsing start_date_local.
// Strava marks local timestamps with a trailing Z; the wall clock is kept as-is.
var dateLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	DateLayout,
	"2006-01-02T15:04",
	DayLayout,
}

// TransformStats counts records absorbed with defaults or dropped
type TransformStats struct {
	Input         int
	Rows          int
	MissingID     int
	BadDate       int
	Duplicates    int
	DefaultFields int // records where at least one optional field was defaulted
}

// Dropped returns the number of input records not present in the output
func (s TransformStats) Dropped() int {
	return s.MissingID + s.BadDate + s.Duplicates
}

// Transform maps raw API records to the normalized table.
// Missing optional fields become zero or empty; records without an id
// are dropped. Duplicate ids keep the last record at the first record's
// position, and only then are unparseable start dates dropped.
func Transform(raw []strava.RawActivity) (Table, TransformStats) {
	stats := TransformStats{Input: len(raw)}

	type candidate struct {
		row       Activity
		dated     bool
		defaulted bool
	}
	candidates := make([]candidate, 0, len(raw))
	index := make(map[int64]int, len(raw))
	for _, r := range raw {
		if r.ID == nil {
			stats.MissingID++
			continue
		}

		a, defaulted := normalize(r)
		date, ok := ParseDate(deref(r.StartDateLocal))
		a.Date = date
		c := candidate{row: a, dated: ok, defaulted: defaulted}

		if i, dup := index[a.ID]; dup {
			stats.Duplicates++
			candidates[i] = c
			continue
		}
		index[a.ID] = len(candidates)
		candidates = append(candidates, c)
	}

	rows := make([]Activity, 0, len(candidates))
	for _, c := range candidates {
		if !c.dated {
			stats.BadDate++
			continue
		}
		if c.defaulted {
			stats.DefaultFields++
		}
		rows = append(rows, c.row)
	}

	table := NewTable(rows)
	stats.Rows = table.Len()
	return table, stats
}

// normalize converts one record, reporting whether any optional field was defaulted
func normalize(r strava.RawActivity) (Activity, bool) {
	defaulted := r.Name == nil || r.Type == nil || r.Distance == nil || r.MovingTime == nil ||
		r.TotalElevationGain == nil || r.AverageSpeed == nil || r.MaxSpeed == nil ||
		r.Calories == nil || r.KudosCount == nil

	distanceKm := Round1(nonNegative(derefFloat(r.Distance)) / metersPerKm)
	durationMin := Round1(nonNegative(derefFloat(r.MovingTime)) / secondsPerMinute)

	kudos := 0
	if r.KudosCount != nil && *r.KudosCount > 0 {
		kudos = *r.KudosCount
	}

	typ := deref(r.Type)
	if typ == "" {
		typ = deref(r.SportType)
	}

	return Activity{
		ID:          *r.ID,
		Name:        deref(r.Name),
		Type:        typ,
		DistanceKm:  distanceKm,
		DurationMin: durationMin,
		Pace:        ComputePace(durationMin, distanceKm),
		ElevationM:  derefFloat(r.TotalElevationGain),
		AvgSpeedKmh: derefFloat(r.AverageSpeed) * msToKmh,
		MaxSpeedKmh: derefFloat(r.MaxSpeed) * msToKmh,
		Calories:    derefFloat(r.Calories),
		Kudos:       kudos,
		Polyline:    r.SummaryPolyline(),
	}, defaulted
}

// ParseDate parses a timestamp into its wall-clock value at second precision.
// Zone information is discarded.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
	}
	return time.Time{}, false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
