package service

const (
	// Run history shown by the dashboards
	RunHistoryLimit = 10

	// Rows per page on activity listings
	ActivitiesPageSize = 20
)
