package service

import (
	"testing"
	"time"

	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/analysis"
	"strava-dashboard/internal/chart"
)

func dashboardTable() activity.Table {
	at := func(id int64, y int, m time.Month, d int, km, min float64) activity.Activity {
		return activity.Activity{
			ID: id, Name: "Run", Type: "Run",
			Date:       time.Date(y, m, d, 8, 0, 0, 0, time.UTC),
			DistanceKm: km, DurationMin: min, Pace: activity.ComputePace(min, km),
		}
	}
	return activity.NewTable([]activity.Activity{
		at(1, 2023, time.March, 15, 10, 50),
		at(2, 2024, time.March, 15, 5, 30),
		at(3, 2024, time.April, 2, 1, 10),
	})
}

func TestBuildDashboardAll(t *testing.T) {
	view := BuildDashboard(dashboardTable(), analysis.Selection{}, analysis.Selection{}, "en")

	if view.Rows != 3 {
		t.Errorf("Rows = %d, want 3", view.Rows)
	}
	if view.KPIs.TotalRuns != "3" || view.KPIs.TotalKm != "16.0 km" {
		t.Errorf("KPIs = %+v", view.KPIs)
	}
	if len(view.Options.Years) != 2 || view.Options.Years[0] != 2024 {
		t.Errorf("Years = %v, want [2024 2023]", view.Options.Years)
	}
	if _, ok := chart.Find(view.Charts, chart.IDMonthlyDistance); !ok {
		t.Error("monthly distance chart missing")
	}
}

func TestBuildDashboardYearChangeResetsDay(t *testing.T) {
	table := dashboardTable()
	prev := analysis.Selection{Year: 2024, Month: 3, Day: 15}
	next := analysis.Selection{Year: 2023, Month: 3, Day: 15}

	view := BuildDashboard(table, prev, next, "en")

	want := analysis.Selection{Year: 2023, Month: 3, Day: analysis.All}
	if view.Selection != want {
		t.Errorf("Selection = %+v, want %+v", view.Selection, want)
	}
	if view.Rows != 1 || view.Filtered.At(0).ID != 1 {
		t.Errorf("filtered rows = %d", view.Rows)
	}
}

func TestBuildDashboardEmptySelection(t *testing.T) {
	table := dashboardTable()
	sel := analysis.Selection{Year: 2024, Month: 4, Day: 3}

	view := BuildDashboard(table, sel, sel, "en")

	// day 3 has no data in April 2024, so it resets
	if view.Selection.Day != analysis.All {
		t.Errorf("Day = %d, want All", view.Selection.Day)
	}
	if view.Rows != 1 {
		t.Errorf("Rows = %d, want 1", view.Rows)
	}

	empty := BuildDashboard(activity.Table{}, analysis.Selection{}, analysis.Selection{}, "en")
	if !empty.Summary.Empty || empty.KPIs.MeanPace != analysis.NotAvailable {
		t.Errorf("empty view = %+v", empty.KPIs)
	}
	for _, c := range empty.Charts {
		if c.Kind != chart.KindIndicator && !c.Empty {
			t.Errorf("chart %s should be empty", c.ID)
		}
	}
}
