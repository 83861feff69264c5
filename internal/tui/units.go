package tui

import (
	"fmt"
	"math"
	"strconv"

	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/analysis"
	"strava-dashboard/internal/config"
)

var allLabels = map[string]string{
	"en": "All",
	"pt": "Todos",
}

// Units formats values for display according to the display config
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}
	return Units{cfg: cfg}
}

// Locale returns the month label locale
func (u Units) Locale() string {
	return u.cfg.Locale
}

// FormatDistance formats kilometres with one decimal
func (u Units) FormatDistance(km float64) string {
	return analysis.FormatKm(km)
}

// FormatPace formats a pace as M:SS, or "-" when undefined
func (u Units) FormatPace(pace *float64) string {
	s := analysis.FormatPace(pace)
	if s == analysis.NotAvailable {
		return "-"
	}
	return s
}

// FormatDuration formats minutes as "1h 05m" or "42m"
func (u Units) FormatDuration(minutes float64) string {
	total := int(math.Round(minutes))
	h := total / 60
	m := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatDate formats an activity date for tables
func (u Units) FormatDate(a activity.Activity) string {
	return a.DateOnly()
}

// AllLabel is the label of the no-constraint selector value
func (u Units) AllLabel() string {
	if l, ok := allLabels[u.cfg.Locale]; ok {
		return l
	}
	return allLabels["en"]
}

// YearLabel returns a selector label for a year value
func (u Units) YearLabel(year int) string {
	if year == analysis.All {
		return u.AllLabel()
	}
	return strconv.Itoa(year)
}

// MonthLabel returns a selector label for a month value
func (u Units) MonthLabel(month int) string {
	if month == analysis.All {
		return u.AllLabel()
	}
	return analysis.MonthLabel(month, u.cfg.Locale)
}

// DayLabel returns a selector label for a day value
func (u Units) DayLabel(day int) string {
	if day == analysis.All {
		return u.AllLabel()
	}
	return fmt.Sprintf("%02d", day)
}

// PeriodLabel returns "Jan 2024" style labels
func (u Units) PeriodLabel(p activity.Period) string {
	return analysis.PeriodLabel(p, u.cfg.Locale)
}
