package analysis

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"strava-dashboard/internal/activity"
)

// NotAvailable is shown in place of a KPI that cannot be computed
const NotAvailable = "N/A"

// FormatPace renders a minutes-per-km value as M:SS.
// Undefined or zero pace renders as N/A.
func FormatPace(pace *float64) string {
	if pace == nil || *pace <= 0 || math.IsNaN(*pace) || math.IsInf(*pace, 0) {
		return NotAvailable
	}
	p := activity.Round1(*pace)
	minutes := math.Floor(p)
	seconds := math.Round((p - minutes) * 60)
	if seconds >= 60 {
		minutes++
		seconds -= 60
	}
	return fmt.Sprintf("%d:%02d", int(minutes), int(seconds))
}

// FormatPaceValue is FormatPace for a plain value
func FormatPaceValue(pace float64) string {
	return FormatPace(&pace)
}

// FormatHMS renders a duration in minutes as H:MM:SS with unbounded hours
func FormatHMS(totalMinutes float64) string {
	if totalMinutes <= 0 || math.IsNaN(totalMinutes) {
		return "0:00:00"
	}
	total := int64(math.Round(totalMinutes * 60))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func formatInt(n int) string {
	return humanize.Comma(int64(n))
}

// FormatKm renders a distance with one decimal
func FormatKm(km float64) string {
	return fmt.Sprintf("%.1f km", km)
}

var monthLabels = map[string][12]string{
	"en": {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	"pt": {"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"},
}

// Locales lists the supported month label locales
var Locales = []string{"en", "pt"}

// MonthLabel returns the short month name for m (1-12); unknown locales fall back to English
func MonthLabel(m int, locale string) string {
	if m < 1 || m > 12 {
		return "?"
	}
	labels, ok := monthLabels[locale]
	if !ok {
		labels = monthLabels["en"]
	}
	return labels[m-1]
}

// PeriodLabel renders a period as "Jan 2024"
func PeriodLabel(p activity.Period, locale string) string {
	if p.Month() == 0 {
		return string(p)
	}
	return fmt.Sprintf("%s %d", MonthLabel(p.Month(), locale), p.Year())
}
