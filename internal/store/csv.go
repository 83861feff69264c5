package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"strava-dashboard/internal/activity"
)

var (
	// ErrNotFound is returned when the table file does not exist
	ErrNotFound = errors.New("activity table not found")
	// ErrCorrupt is returned when the table file cannot be parsed into the canonical schema
	ErrCorrupt = errors.New("activity table corrupt")
)

// SaveCSV writes the table to path, fully replacing any previous file.
// The file is written to a temporary sibling and renamed into place.
func SaveCSV(t activity.Table, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := WriteCSV(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("rows", t.Len()).Msg("Saved activity table")
	return nil
}

// WriteCSV encodes the table with the canonical header
func WriteCSV(w io.Writer, t activity.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(activity.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := 0; i < t.Len(); i++ {
		if err := cw.Write(encodeRow(t.At(i))); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeRow(a activity.Activity) []string {
	pace := ""
	if a.Pace != nil {
		pace = formatFloat(*a.Pace)
	}
	return []string{
		strconv.FormatInt(a.ID, 10),
		a.Name,
		a.Type,
		a.Date.Format(activity.DateLayout),
		formatFloat(a.DistanceKm),
		formatFloat(a.DurationMin),
		formatFloat(a.ElevationM),
		formatFloat(a.AvgSpeedKmh),
		formatFloat(a.MaxSpeedKmh),
		formatFloat(a.Calories),
		strconv.Itoa(a.Kudos),
		a.Polyline,
		pace,
		a.DateOnly(),
		string(a.Period()),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// LoadCSV reads a table written by SaveCSV.
// Rows whose date cannot be parsed are dropped; any other malformed
// content makes the whole file ErrCorrupt.
func LoadCSV(path string) (activity.Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return activity.Table{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return activity.Table{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, dropped, err := ReadCSV(f)
	if err != nil {
		return activity.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	if dropped > 0 {
		log.Warn().Str("path", path).Int("dropped", dropped).Msg("Dropped rows with unparseable dates")
	}
	return t, nil
}

// LoadOrEmpty loads the table, falling back to an empty table on any failure.
// The returned error is a warning for the caller to surface, never fatal.
func LoadOrEmpty(path string) (activity.Table, error) {
	t, err := LoadCSV(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Using empty activity table")
		return activity.Table{}, err
	}
	return t, nil
}

// ReadCSV decodes a table and reports how many rows were dropped for bad dates
func ReadCSV(r io.Reader) (activity.Table, int, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return activity.Table{}, 0, fmt.Errorf("%w: empty file", ErrCorrupt)
	}
	if err != nil {
		return activity.Table{}, 0, fmt.Errorf("%w: reading header: %w", ErrCorrupt, err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return activity.Table{}, 0, err
	}

	var rows []activity.Activity
	dropped := 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return activity.Table{}, 0, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		a, ok, err := decodeRow(rec, idx)
		if err != nil {
			return activity.Table{}, 0, fmt.Errorf("%w: line %d: %w", ErrCorrupt, line, err)
		}
		if !ok {
			dropped++
			continue
		}
		rows = append(rows, a)
	}

	return activity.NewTable(rows), dropped, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = trimBOM(h)
		}
		idx[h] = i
	}
	for _, c := range activity.Columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrCorrupt, c)
		}
	}
	return idx, nil
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}

// decodeRow returns ok=false when the row must be dropped for its date
func decodeRow(rec []string, idx map[string]int) (activity.Activity, bool, error) {
	get := func(c string) string { return rec[idx[c]] }

	var a activity.Activity
	var err error

	if a.ID, err = strconv.ParseInt(get("id"), 10, 64); err != nil {
		return a, false, fmt.Errorf("id: %w", err)
	}

	date, ok := activity.ParseDate(get("date"))
	if !ok {
		return a, false, nil
	}
	a.Date = date
	a.Name = get("name")
	a.Type = get("type")
	a.Polyline = get("polyline")

	floats := []struct {
		col string
		dst *float64
	}{
		{"distance_km", &a.DistanceKm},
		{"duration_min", &a.DurationMin},
		{"elevation_m", &a.ElevationM},
		{"avg_speed_kmh", &a.AvgSpeedKmh},
		{"max_speed_kmh", &a.MaxSpeedKmh},
		{"calories", &a.Calories},
	}
	for _, f := range floats {
		if *f.dst, err = parseFloat(get(f.col)); err != nil {
			return a, false, fmt.Errorf("%s: %w", f.col, err)
		}
	}

	if k := get("kudos"); k != "" {
		if a.Kudos, err = strconv.Atoi(k); err != nil {
			return a, false, fmt.Errorf("kudos: %w", err)
		}
	}

	a.DistanceKm = activity.Round1(nonNegative(a.DistanceKm))
	a.DurationMin = activity.Round1(nonNegative(a.DurationMin))

	// pace stays undefined for zero distance whatever the cell says
	if a.DistanceKm > 0 {
		p := get("pace_min_km")
		if p == "" {
			a.Pace = activity.ComputePace(a.DurationMin, a.DistanceKm)
		} else {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return a, false, fmt.Errorf("pace_min_km: %w", err)
			}
			a.Pace = &v
		}
	}

	return a, true, nil
}

// parseFloat treats an empty cell as zero
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
