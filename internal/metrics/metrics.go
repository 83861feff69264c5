package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for RowsDropped
const (
	ReasonMissingID = "missing_id"
	ReasonBadDate   = "bad_date"
	ReasonDuplicate = "duplicate"
)

var (
	// ETL Metrics
	ETLRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_etl_runs_total",
			Help: "Total number of ETL runs by outcome",
		},
		[]string{"status"}, // "success", "partial", "empty", "failed"
	)

	ETLPagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strava_etl_pages_fetched_total",
			Help: "Total number of activity pages fetched",
		},
	)

	ETLActivitiesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strava_etl_activities_fetched_total",
			Help: "Total number of raw activities fetched",
		},
	)

	ETLRowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_etl_rows_dropped_total",
			Help: "Total number of raw activities dropped during transform",
		},
		[]string{"reason"},
	)

	ETLRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strava_etl_run_duration_seconds",
			Help:    "Duration of ETL runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// Dashboard Metrics
	TableRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "strava_dashboard_table_rows",
			Help: "Rows in the currently loaded activity table",
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_dashboard_requests_total",
			Help: "Total number of dashboard API requests",
		},
		[]string{"endpoint", "status_code"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strava_dashboard_request_duration_seconds",
			Help:    "Dashboard API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// RecordRun records the outcome of one ETL run
func RecordRun(status string, duration time.Duration, pages, fetched int) {
	ETLRunsTotal.WithLabelValues(status).Inc()
	ETLRunDuration.Observe(duration.Seconds())
	ETLPagesFetched.Add(float64(pages))
	ETLActivitiesFetched.Add(float64(fetched))
}

// RecordDropped records raw activities dropped for reason
func RecordDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	ETLRowsDropped.WithLabelValues(reason).Add(float64(n))
}

// RecordRequest records a dashboard API request metric
func RecordRequest(endpoint string, statusCode int, duration time.Duration) {
	RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SetTableRows records the size of the loaded table
func SetTableRows(n int) {
	TableRows.Set(float64(n))
}
