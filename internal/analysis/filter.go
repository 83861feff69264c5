package analysis

import (
	"slices"
	"sort"

	"strava-dashboard/internal/activity"
)

// All is the selector value meaning "no constraint"
const All = 0

// Selection is the state of the year/month/day cascade.
// A zero field means All.
type Selection struct {
	Year  int `json:"year" validate:"omitempty,min=1900,max=9999"`
	Month int `json:"month" validate:"omitempty,min=1,max=12"`
	Day   int `json:"day" validate:"omitempty,min=1,max=31"`
}

// IsAll reports whether no constraint is selected
func (s Selection) IsAll() bool {
	return s.Year == All && s.Month == All && s.Day == All
}

// Options lists the values each selector may take under a selection
type Options struct {
	Years  []int `json:"years"`
	Months []int `json:"months"`
	Days   []int `json:"days"`
}

// AvailableYears returns every year with data, newest first
func AvailableYears(t activity.Table) []int {
	years := distinct(t, func(a activity.Activity) int { return a.Date.Year() })
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// AvailableMonths returns the months (1-12) with data within year, ascending
func AvailableMonths(t activity.Table, year int) []int {
	filtered := Apply(t, Selection{Year: year})
	months := distinct(filtered, func(a activity.Activity) int { return int(a.Date.Month()) })
	sort.Ints(months)
	return months
}

// AvailableDays returns the days of month with data under year and month, ascending
func AvailableDays(t activity.Table, year, month int) []int {
	filtered := Apply(t, Selection{Year: year, Month: month})
	days := distinct(filtered, func(a activity.Activity) int { return a.Date.Day() })
	sort.Ints(days)
	return days
}

// AvailableOptions returns the selector options for sel
func AvailableOptions(t activity.Table, sel Selection) Options {
	return Options{
		Years:  AvailableYears(t),
		Months: AvailableMonths(t, sel.Year),
		Days:   AvailableDays(t, sel.Year, sel.Month),
	}
}

// Cascade resolves a selector change from prev to next.
// A year or month change always resets day to All, and resets month to All
// when the new year has no data in it. A day-only change keeps the day if
// it has data, otherwise resets it.
func Cascade(t activity.Table, prev, next Selection) Selection {
	out := next

	if next.Year != prev.Year || next.Month != prev.Month {
		if out.Month != All && !slices.Contains(AvailableMonths(t, out.Year), out.Month) {
			out.Month = All
		}
		out.Day = All
		return out
	}

	if out.Day != All && !slices.Contains(AvailableDays(t, out.Year, out.Month), out.Day) {
		out.Day = All
	}
	return out
}

// Apply returns the rows matching every non-All constraint in sel.
// The source table is never modified.
func Apply(t activity.Table, sel Selection) activity.Table {
	if sel.IsAll() {
		return t
	}
	return t.Filter(func(a activity.Activity) bool {
		if sel.Year != All && a.Date.Year() != sel.Year {
			return false
		}
		if sel.Month != All && int(a.Date.Month()) != sel.Month {
			return false
		}
		if sel.Day != All && a.Date.Day() != sel.Day {
			return false
		}
		return true
	})
}

func distinct(t activity.Table, key func(activity.Activity) int) []int {
	seen := make(map[int]bool)
	var out []int
	for i := 0; i < t.Len(); i++ {
		k := key(t.At(i))
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
