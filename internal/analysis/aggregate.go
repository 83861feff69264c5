package analysis

import (
	"math"
	"sort"
	"time"

	"strava-dashboard/internal/activity"
)

// ElevationBins is the bucket count of the elevation histogram
const ElevationBins = 20

// Distance categories, in canonical order
const (
	CategoryEasy   = "Easy (< 5km)"
	CategoryShort  = "Short (5-10km)"
	CategoryMedium = "Medium (10-21km)"
	CategoryHalf   = "Half marathon (>= 21km)"
)

var categoryOrder = []string{CategoryEasy, CategoryShort, CategoryMedium, CategoryHalf}

// Categorize buckets a distance into one of the four categories
func Categorize(distanceKm float64) string {
	switch {
	case distanceKm < 5:
		return CategoryEasy
	case distanceKm < 10:
		return CategoryShort
	case distanceKm < 21:
		return CategoryMedium
	default:
		return CategoryHalf
	}
}

// PeriodValue is a value keyed by year+month
type PeriodValue struct {
	Period activity.Period `json:"period"`
	Value  float64         `json:"value"`
}

// MonthValue is a value keyed by calendar month (1-12), merged across years
type MonthValue struct {
	Month int     `json:"month"`
	Value float64 `json:"value"`
}

// DatedValue is a value at a point in time
type DatedValue struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// LabelCount is a categorical count
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// LabelValue is a categorical value
type LabelValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Point is a scatter point
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bin is a histogram bucket covering [Lo, Hi)
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// MonthlyStat summarises one period
type MonthlyStat struct {
	Period      activity.Period `json:"period"`
	Runs        int             `json:"runs"`
	DistanceKm  float64         `json:"distance_km"`
	DurationMin float64         `json:"duration_min"`
	MeanPace    *float64        `json:"mean_pace,omitempty"`
}

// Summary is every aggregate of a filtered table.
// Empty is true when the table had no rows; every slice is then empty.
type Summary struct {
	Empty            bool     `json:"empty"`
	TotalRuns        int      `json:"total_runs"`
	TotalKm          float64  `json:"total_km"`
	TotalDurationMin float64  `json:"total_duration_min"`
	MeanPace         *float64 `json:"mean_pace,omitempty"`

	MonthlyDistance    []PeriodValue `json:"monthly_distance"`
	MonthlyMeanPace    []MonthValue  `json:"monthly_mean_pace"`
	CumulativeDistance []DatedValue  `json:"cumulative_distance"`
	MonthlyCumulative  []PeriodValue `json:"monthly_cumulative"`
	TypeDistribution   []LabelCount  `json:"type_distribution"`
	CategoryPaceMeans  []LabelValue  `json:"category_pace_means"`
	MonthlyStats       []MonthlyStat `json:"monthly_stats"`

	PaceTrend          []DatedValue `json:"pace_trend"`
	DistanceVsDuration []Point      `json:"distance_vs_duration"`
	SpeedVsDistance    []Point      `json:"speed_vs_distance"`
	ElevationHistogram []Bin        `json:"elevation_histogram"`
}

// Summarize computes every aggregate of t in one pass over its rows.
// An empty table yields a Summary with Empty set, never an error.
func Summarize(t activity.Table) Summary {
	if t.Empty() {
		return Summary{Empty: true}
	}

	s := Summary{TotalRuns: t.Len()}
	rows := t.Rows()
	for _, a := range rows {
		s.TotalKm += a.DistanceKm
		s.TotalDurationMin += a.DurationMin
	}
	s.MeanPace = MeanPace(s.TotalDurationMin, s.TotalKm)

	s.MonthlyStats = monthlyStats(rows)
	s.MonthlyDistance = make([]PeriodValue, len(s.MonthlyStats))
	for i, m := range s.MonthlyStats {
		s.MonthlyDistance[i] = PeriodValue{Period: m.Period, Value: m.DistanceKm}
	}
	s.MonthlyMeanPace = monthlyMeanPace(rows)

	sorted := t.SortedByDate().Rows()
	s.CumulativeDistance, s.MonthlyCumulative = cumulative(sorted)
	s.PaceTrend = paceTrend(sorted)

	s.TypeDistribution = typeDistribution(rows)
	s.CategoryPaceMeans = categoryPaceMeans(rows)

	s.DistanceVsDuration = make([]Point, len(rows))
	s.SpeedVsDistance = make([]Point, len(rows))
	for i, a := range rows {
		s.DistanceVsDuration[i] = Point{X: a.DistanceKm, Y: a.DurationMin}
		s.SpeedVsDistance[i] = Point{X: a.DistanceKm, Y: a.AvgSpeedKmh}
	}
	s.ElevationHistogram = elevationHistogram(rows, ElevationBins)

	return s
}

// MeanPace is total duration over total distance, weighted by distance.
// It is nil when distance is not positive.
func MeanPace(totalDurationMin, totalKm float64) *float64 {
	if totalKm <= 0 {
		return nil
	}
	p := totalDurationMin / totalKm
	return &p
}

// KPIs are the four headline values, ready for display
type KPIs struct {
	TotalRuns string `json:"total_runs"`
	TotalKm   string `json:"total_km"`
	MeanPace  string `json:"mean_pace"`
	TotalTime string `json:"total_time"`
}

// KPIs formats the headline values. An empty summary shows N/A everywhere.
func (s Summary) KPIs() KPIs {
	if s.Empty {
		return KPIs{
			TotalRuns: NotAvailable,
			TotalKm:   NotAvailable + " km",
			MeanPace:  NotAvailable,
			TotalTime: NotAvailable,
		}
	}
	return KPIs{
		TotalRuns: formatInt(s.TotalRuns),
		TotalKm:   FormatKm(s.TotalKm),
		MeanPace:  FormatPace(s.MeanPace),
		TotalTime: FormatHMS(s.TotalDurationMin),
	}
}

func monthlyStats(rows []activity.Activity) []MonthlyStat {
	byPeriod := make(map[activity.Period]*MonthlyStat)
	for _, a := range rows {
		p := a.Period()
		m, ok := byPeriod[p]
		if !ok {
			m = &MonthlyStat{Period: p}
			byPeriod[p] = m
		}
		m.Runs++
		m.DistanceKm += a.DistanceKm
		m.DurationMin += a.DurationMin
	}

	out := make([]MonthlyStat, 0, len(byPeriod))
	for _, m := range byPeriod {
		m.MeanPace = MeanPace(m.DurationMin, m.DistanceKm)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// monthlyMeanPace merges same-numbered months across years.
// Only rows with a defined pace contribute.
func monthlyMeanPace(rows []activity.Activity) []MonthValue {
	var sums, counts [13]float64
	for _, a := range rows {
		if a.Pace == nil {
			continue
		}
		m := int(a.Date.Month())
		sums[m] += *a.Pace
		counts[m]++
	}

	var out []MonthValue
	for m := 1; m <= 12; m++ {
		if counts[m] > 0 {
			out = append(out, MonthValue{Month: m, Value: sums[m] / counts[m]})
		}
	}
	return out
}

// cumulative expects rows sorted by date
func cumulative(sorted []activity.Activity) ([]DatedValue, []PeriodValue) {
	running := 0.0
	points := make([]DatedValue, len(sorted))
	var monthly []PeriodValue
	for i, a := range sorted {
		running += a.DistanceKm
		points[i] = DatedValue{Date: a.Date, Value: running}

		p := a.Period()
		if n := len(monthly); n > 0 && monthly[n-1].Period == p {
			monthly[n-1].Value = running
		} else {
			monthly = append(monthly, PeriodValue{Period: p, Value: running})
		}
	}
	return points, monthly
}

func paceTrend(sorted []activity.Activity) []DatedValue {
	var out []DatedValue
	for _, a := range sorted {
		if a.DistanceKm > 0 && a.Pace != nil {
			out = append(out, DatedValue{Date: a.Date, Value: *a.Pace})
		}
	}
	return out
}

// typeDistribution is ordered by count descending, then label
func typeDistribution(rows []activity.Activity) []LabelCount {
	counts := make(map[string]int)
	for _, a := range rows {
		counts[a.Type]++
	}
	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// categoryPaceMeans averages defined paces per distance category,
// omitting empty categories, fastest first.
func categoryPaceMeans(rows []activity.Activity) []LabelValue {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, a := range rows {
		if a.Pace == nil {
			continue
		}
		c := Categorize(a.DistanceKm)
		sums[c] += *a.Pace
		counts[c]++
	}

	var out []LabelValue
	for _, c := range categoryOrder {
		if counts[c] > 0 {
			out = append(out, LabelValue{Label: c, Value: sums[c] / float64(counts[c])})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func elevationHistogram(rows []activity.Activity, bins int) []Bin {
	var values []float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, a := range rows {
		if a.ElevationM > 0 {
			values = append(values, a.ElevationM)
			lo = math.Min(lo, a.ElevationM)
			hi = math.Max(hi, a.ElevationM)
		}
	}
	if len(values) == 0 {
		return nil
	}
	if hi == lo {
		return []Bin{{Lo: lo, Hi: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lo: lo + float64(i)*width, Hi: lo + float64(i+1)*width}
	}
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}
