package tui

import (
	"slices"

	"strava-dashboard/internal/analysis"
)

// cycle steps through All followed by options, wrapping at both ends.
// A current value missing from options restarts at All.
func cycle(current int, options []int, step int) int {
	values := append([]int{analysis.All}, options...)
	i := slices.Index(values, current)
	if i < 0 {
		return analysis.All
	}
	n := len(values)
	return values[((i+step)%n+n)%n]
}

// nextSelection applies one filter key to sel using the options valid for sel
func nextSelection(sel analysis.Selection, opts analysis.Options, field byte, step int) analysis.Selection {
	next := sel
	switch field {
	case 'y':
		next.Year = cycle(sel.Year, opts.Years, step)
	case 'm':
		next.Month = cycle(sel.Month, opts.Months, step)
	case 'd':
		next.Day = cycle(sel.Day, opts.Days, step)
	}
	return next
}
