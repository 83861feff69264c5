// Package report writes the dashboard as a static Markdown document with
// Mermaid charts.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/analysis"
	"strava-dashboard/internal/chart"
	"strava-dashboard/internal/service"
)

// Options controls report content
type Options struct {
	Title       string
	Selection   analysis.Selection
	Locale      string
	GeneratedAt time.Time
}

// Write renders the report for t filtered by opts.Selection
func Write(w io.Writer, t activity.Table, opts Options) error {
	if opts.Title == "" {
		opts.Title = "Strava Running Report"
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	view := service.BuildDashboard(t, analysis.Selection{}, opts.Selection, opts.Locale)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", opts.Title)
	fmt.Fprintf(&sb, "_Generated %s_\n\n", opts.GeneratedAt.Format(activity.DateLayout))
	fmt.Fprintf(&sb, "Filter: %s\n\n", describeSelection(view.Selection, opts.Locale))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Total runs | %s |\n", view.KPIs.TotalRuns)
	fmt.Fprintf(&sb, "| Total distance | %s |\n", view.KPIs.TotalKm)
	fmt.Fprintf(&sb, "| Mean pace | %s |\n", view.KPIs.MeanPace)
	fmt.Fprintf(&sb, "| Total time | %s |\n\n", view.KPIs.TotalTime)

	if len(view.Summary.MonthlyStats) > 0 {
		sb.WriteString("## Monthly\n\n")
		sb.WriteString("| Month | Runs | Distance | Time | Mean pace |\n|---|---:|---:|---:|---:|\n")
		for _, m := range view.Summary.MonthlyStats {
			fmt.Fprintf(&sb, "| %s | %d | %s | %s | %s |\n",
				analysis.PeriodLabel(m.Period, opts.Locale),
				m.Runs,
				analysis.FormatKm(m.DistanceKm),
				analysis.FormatHMS(m.DurationMin),
				analysis.FormatPace(m.MeanPace),
			)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Charts\n\n")
	for _, spec := range view.Charts {
		if spec.Kind == chart.KindIndicator {
			continue
		}
		fmt.Fprintf(&sb, "### %s\n\n%s\n\n", spec.Title, chart.RenderMermaid(spec))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteFile renders the report to path, creating parent directories
func WriteFile(path string, t activity.Table, opts Options) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := Write(f, t, opts); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}

func describeSelection(sel analysis.Selection, locale string) string {
	if sel.IsAll() {
		return "all activities"
	}
	var parts []string
	if sel.Year != analysis.All {
		parts = append(parts, fmt.Sprintf("year %d", sel.Year))
	}
	if sel.Month != analysis.All {
		parts = append(parts, "month "+analysis.MonthLabel(sel.Month, locale))
	}
	if sel.Day != analysis.All {
		parts = append(parts, fmt.Sprintf("day %d", sel.Day))
	}
	return strings.Join(parts, ", ")
}
