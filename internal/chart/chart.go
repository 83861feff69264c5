// Package chart turns aggregated results into renderer-neutral chart specs
// and renders them for the terminal and for Markdown.
package chart

import (
	"fmt"
	"sort"

	"strava-dashboard/internal/analysis"
)

// Kind is the visual form of a chart
type Kind string

const (
	KindIndicator Kind = "indicator"
	KindLine      Kind = "line"
	KindBar       Kind = "bar"
	KindPie       Kind = "pie"
	KindScatter   Kind = "scatter"
)

// Chart IDs, one per aggregate
const (
	IDTotalRuns          = "total_runs"
	IDTotalKm            = "total_km"
	IDMeanPace           = "mean_pace"
	IDTotalTime          = "total_time"
	IDMonthlyDistance    = "monthly_distance"
	IDMonthlyMeanPace    = "monthly_mean_pace"
	IDCumulativeDistance = "cumulative_distance"
	IDTypeDistribution   = "type_distribution"
	IDCategoryPace       = "category_pace"
	IDPaceTrend          = "pace_trend"
	IDDistanceVsDuration = "distance_vs_duration"
	IDSpeedVsDistance    = "speed_vs_distance"
	IDElevation          = "elevation_histogram"
)

// NoData is the placeholder shown for empty charts
const NoData = "No data"

// Spec describes one chart. Renderers only ever see Specs, never tables.
type Spec struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Kind   Kind      `json:"kind"`
	XLabel string    `json:"x_label,omitempty"`
	YLabel string    `json:"y_label,omitempty"`
	Labels []string  `json:"labels,omitempty"`
	X      []float64 `json:"x,omitempty"` // scatter only
	Values []float64 `json:"values,omitempty"`
	Text   string    `json:"text,omitempty"` // indicator only
	Empty  bool      `json:"empty"`
}

// Build maps every aggregate of s to exactly one Spec, in display order
func Build(s analysis.Summary, locale string) []Spec {
	kpis := s.KPIs()
	specs := []Spec{
		indicator(IDTotalRuns, "Total runs", kpis.TotalRuns, s.Empty),
		indicator(IDTotalKm, "Total distance", kpis.TotalKm, s.Empty),
		indicator(IDMeanPace, "Mean pace (min/km)", kpis.MeanPace, s.Empty || s.MeanPace == nil),
		indicator(IDTotalTime, "Total time", kpis.TotalTime, s.Empty),
	}

	monthly := Spec{ID: IDMonthlyDistance, Title: "Distance per month", Kind: KindBar, XLabel: "Month", YLabel: "km"}
	for _, m := range s.MonthlyDistance {
		monthly.Labels = append(monthly.Labels, analysis.PeriodLabel(m.Period, locale))
		monthly.Values = append(monthly.Values, m.Value)
	}

	pace := Spec{ID: IDMonthlyMeanPace, Title: "Mean pace by month", Kind: KindLine, XLabel: "Month", YLabel: "min/km"}
	for _, m := range s.MonthlyMeanPace {
		pace.Labels = append(pace.Labels, analysis.MonthLabel(m.Month, locale))
		pace.Values = append(pace.Values, m.Value)
	}

	cum := Spec{ID: IDCumulativeDistance, Title: "Cumulative distance", Kind: KindLine, XLabel: "Month", YLabel: "km"}
	for _, m := range s.MonthlyCumulative {
		cum.Labels = append(cum.Labels, analysis.PeriodLabel(m.Period, locale))
		cum.Values = append(cum.Values, m.Value)
	}

	types := Spec{ID: IDTypeDistribution, Title: "Activity types", Kind: KindPie}
	for _, c := range s.TypeDistribution {
		label := c.Label
		if label == "" {
			label = "Unknown"
		}
		types.Labels = append(types.Labels, label)
		types.Values = append(types.Values, float64(c.Count))
	}

	cats := Spec{ID: IDCategoryPace, Title: "Mean pace by distance", Kind: KindBar, XLabel: "Category", YLabel: "min/km"}
	for _, c := range s.CategoryPaceMeans {
		cats.Labels = append(cats.Labels, c.Label)
		cats.Values = append(cats.Values, c.Value)
	}

	trend := Spec{ID: IDPaceTrend, Title: "Pace over time", Kind: KindLine, XLabel: "Date", YLabel: "min/km"}
	for _, p := range s.PaceTrend {
		trend.Labels = append(trend.Labels, p.Date.Format("2006-01-02"))
		trend.Values = append(trend.Values, p.Value)
	}

	dvd := scatter(IDDistanceVsDuration, "Distance vs duration", "km", "min", s.DistanceVsDuration)
	svd := scatter(IDSpeedVsDistance, "Speed vs distance", "km", "km/h", s.SpeedVsDistance)

	elev := Spec{ID: IDElevation, Title: "Elevation gain", Kind: KindBar, XLabel: "m", YLabel: "activities"}
	for _, b := range s.ElevationHistogram {
		elev.Labels = append(elev.Labels, fmt.Sprintf("%.0f-%.0f", b.Lo, b.Hi))
		elev.Values = append(elev.Values, float64(b.Count))
	}

	for _, sp := range []*Spec{&monthly, &pace, &cum, &types, &cats, &trend, &elev} {
		sp.Empty = len(sp.Values) == 0
	}

	return append(specs, monthly, pace, cum, types, cats, trend, dvd, svd, elev)
}

// Find returns the spec with the given ID
func Find(specs []Spec, id string) (Spec, bool) {
	for _, s := range specs {
		if s.ID == id {
			return s, true
		}
	}
	return Spec{}, false
}

func indicator(id, title, text string, empty bool) Spec {
	return Spec{ID: id, Title: title, Kind: KindIndicator, Text: text, Empty: empty}
}

// scatter keeps points ordered by X so line-based renderers stay readable
func scatter(id, title, xLabel, yLabel string, points []analysis.Point) Spec {
	sorted := make([]analysis.Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	sp := Spec{ID: id, Title: title, Kind: KindScatter, XLabel: xLabel, YLabel: yLabel, Empty: len(points) == 0}
	for _, p := range sorted {
		sp.X = append(sp.X, p.X)
		sp.Values = append(sp.Values, p.Y)
	}
	return sp
}
