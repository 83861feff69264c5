package activity

import (
	"sort"
	"time"
)

// Table is an immutable snapshot of normalized activities.
// Filtering and sorting always return a new Table.
type Table struct {
	rows []Activity
}

// NewTable builds a table from rows. Rows sharing an ID collapse into one:
// the last occurrence wins but keeps the position of the first.
func NewTable(rows []Activity) Table {
	if len(rows) == 0 {
		return Table{}
	}

	index := make(map[int64]int, len(rows))
	out := make([]Activity, 0, len(rows))
	for _, r := range rows {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return Table{rows: out}
}

// Len returns the number of rows
func (t Table) Len() int {
	return len(t.rows)
}

// Empty reports whether the table has no rows
func (t Table) Empty() bool {
	return len(t.rows) == 0
}

// At returns the i-th row
func (t Table) At(i int) Activity {
	return t.rows[i]
}

// Rows returns a copy of the rows
func (t Table) Rows() []Activity {
	out := make([]Activity, len(t.rows))
	copy(out, t.rows)
	return out
}

// Filter returns the rows for which keep returns true
func (t Table) Filter(keep func(Activity) bool) Table {
	var out []Activity
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return Table{rows: out}
}

// SortedByDate returns the rows ordered by date ascending. Ties keep table order.
func (t Table) SortedByDate() Table {
	rows := t.Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return Table{rows: rows}
}

// DateRange returns the earliest and latest activity dates
func (t Table) DateRange() (first, last time.Time) {
	for i, r := range t.rows {
		if i == 0 || r.Date.Before(first) {
			first = r.Date
		}
		if i == 0 || r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last
}

// FilterDateRange keeps activities within [from, to], where to includes the whole day.
// A zero bound is open.
func FilterDateRange(t Table, from, to time.Time) Table {
	if from.IsZero() && to.IsZero() {
		return t
	}
	var end time.Time
	if !to.IsZero() {
		end = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1).Add(-time.Second)
	}
	return t.Filter(func(a Activity) bool {
		if !from.IsZero() && a.Date.Before(from) {
			return false
		}
		if !end.IsZero() && a.Date.After(end) {
			return false
		}
		return true
	})
}
