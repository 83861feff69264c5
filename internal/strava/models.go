package strava

// RawActivity is a summary activity as returned by /athlete/activities.
// Every field is optional; nil means the API omitted it or sent null.
type RawActivity struct {
	ID                 *int64       `json:"id"`
	Name               *string      `json:"name"`
	Type               *string      `json:"type"`
	SportType          *string      `json:"sport_type"`
	StartDateLocal     *string      `json:"start_date_local"`
	Distance           *float64     `json:"distance"`             // meters
	MovingTime         *float64     `json:"moving_time"`          // seconds
	ElapsedTime        *float64     `json:"elapsed_time"`         // seconds
	TotalElevationGain *float64     `json:"total_elevation_gain"` // meters
	AverageSpeed       *float64     `json:"average_speed"`        // m/s
	MaxSpeed           *float64     `json:"max_speed"`            // m/s
	Calories           *float64     `json:"calories"`
	KudosCount         *int         `json:"kudos_count"`
	Map                *ActivityMap `json:"map"`
}

// ActivityMap holds the encoded route of an activity
type ActivityMap struct {
	ID              *string `json:"id"`
	SummaryPolyline *string `json:"summary_polyline"`
}

// SummaryPolyline returns the encoded polyline, or "" when absent
func (a RawActivity) SummaryPolyline() string {
	if a.Map == nil || a.Map.SummaryPolyline == nil {
		return ""
	}
	return *a.Map.SummaryPolyline
}
