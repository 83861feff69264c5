package service

import (
	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/analysis"
	"strava-dashboard/internal/chart"
)

// DashboardView contains all data needed to draw the dashboard for one selection
type DashboardView struct {
	Selection analysis.Selection `json:"selection"`
	Options   analysis.Options   `json:"options"`
	KPIs      analysis.KPIs      `json:"kpis"`
	Charts    []chart.Spec       `json:"charts"`
	Rows      int                `json:"rows"`

	Summary  analysis.Summary `json:"-"`
	Filtered activity.Table   `json:"-"`
}

// BuildDashboard resolves the selector change prev -> next against t, then
// filters, aggregates and builds chart specs in one synchronous pass.
// t is never modified.
func BuildDashboard(t activity.Table, prev, next analysis.Selection, locale string) DashboardView {
	sel := analysis.Cascade(t, prev, next)
	filtered := analysis.Apply(t, sel)
	summary := analysis.Summarize(filtered)

	return DashboardView{
		Selection: sel,
		Options:   analysis.AvailableOptions(t, sel),
		KPIs:      summary.KPIs(),
		Charts:    chart.Build(summary, locale),
		Rows:      filtered.Len(),
		Summary:   summary,
		Filtered:  filtered,
	}
}
