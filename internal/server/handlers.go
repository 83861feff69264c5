package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/analysis"
	"strava-dashboard/internal/auth"
	"strava-dashboard/internal/service"
	"strava-dashboard/internal/store"
	"strava-dashboard/internal/strava"
)

// Error codes returned in the error envelope
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeTableNotFound = "TABLE_NOT_FOUND"
	CodeTableCorrupt  = "TABLE_CORRUPT"
	CodeAuthFailure   = "AUTH_FAILURE"
	CodeFetchFailure  = "FETCH_FAILURE"
	CodeETLFailed     = "ETL_FAILED"
	CodeBusy          = "REFRESH_IN_PROGRESS"
	CodeDisabled      = "NOT_CONFIGURED"
	CodeInternal      = "INTERNAL_ERROR"
)

type apiResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data,omitempty"`
	Metadata metadata  `json:"metadata"`
	Error    *apiError `json:"error,omitempty"`
}

type metadata struct {
	Timestamp time.Time  `json:"timestamp"`
	TableRows int        `json:"table_rows"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	Warning   string     `json:"warning,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type activityRow struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Date        string   `json:"date"`
	DistanceKm  float64  `json:"distance_km"`
	DurationMin float64  `json:"duration_min"`
	PaceMinKm   *float64 `json:"pace_min_km"`
	Pace        string   `json:"pace"`
	ElevationM  float64  `json:"elevation_m"`
	AvgSpeedKmh float64  `json:"avg_speed_kmh"`
	MaxSpeedKmh float64  `json:"max_speed_kmh"`
	Calories    float64  `json:"calories"`
	Kudos       int      `json:"kudos"`
	MonthPeriod string   `json:"month_period"`
}

type activitiesQuery struct {
	Selection analysis.Selection
	Limit     int `validate:"min=1,max=1000"`
}

type runRow struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Pages      int       `json:"pages"`
	Fetched    int       `json:"fetched"`
	Rows       int       `json:"rows"`
	Dropped    int       `json:"dropped"`
	OutputPath string    `json:"output_path,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type reloadResult struct {
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}

type refreshResult struct {
	Run     runRow `json:"run"`
	Partial bool   `json:"partial"`
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	next, err := parseSelection(q, "", analysis.Selection{})
	if err != nil {
		s.respondError(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}
	prev, err := parseSelection(q, "prev_", next)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}
	for _, sel := range []analysis.Selection{next, prev} {
		if err := s.validate.Struct(sel); err != nil {
			s.respondError(w, http.StatusBadRequest, CodeValidation, validationMessage(err), nil)
			return
		}
	}

	view := service.BuildDashboard(s.snapshot.Current(), prev, next, s.opts.Locale)
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query(), "", analysis.Selection{})
	if err != nil {
		s.respondError(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}
	if err := s.validate.Struct(sel); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeValidation, validationMessage(err), nil)
		return
	}

	table := s.snapshot.Current()
	s.respondJSON(w, http.StatusOK, analysis.AvailableOptions(table, sel))
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := parseSelection(q, "", analysis.Selection{})
	if err != nil {
		s.respondError(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}
	limit, err := parseIntParam(q, "limit", service.ActivitiesPageSize)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}
	req := activitiesQuery{Selection: sel, Limit: limit}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeValidation, validationMessage(err), nil)
		return
	}

	rows := analysis.Apply(s.snapshot.Current(), sel).SortedByDate().Rows()
	slices.Reverse(rows)
	if len(rows) > req.Limit {
		rows = rows[:req.Limit]
	}

	out := make([]activityRow, len(rows))
	for i, a := range rows {
		out[i] = toActivityRow(a)
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleActivitiesCSV(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query(), "", analysis.Selection{})
	if err != nil {
		s.respondError(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}

	if err := s.validate.Struct(sel); err != nil {
		s.respondError(w, http.StatusBadRequest, CodeValidation, validationMessage(err), nil)
		return
	}

	table := analysis.Apply(s.snapshot.Current(), sel)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="activities.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := store.WriteCSV(w, table); err != nil {
		log.Error().Err(err).Msg("Failed to write CSV response")
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runs == nil {
		s.respondError(w, http.StatusNotFound, CodeDisabled, "run history is not available", nil)
		return
	}
	limit, err := parseIntParam(r.URL.Query(), "limit", service.RunHistoryLimit)
	if err != nil || limit < 1 || limit > 100 {
		s.respondError(w, http.StatusBadRequest, CodeValidation, "limit must be an integer in [1,100]", nil)
		return
	}

	runs, err := s.opts.Runs.ListRuns(limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, CodeInternal, "failed to list runs", err)
		return
	}
	out := make([]runRow, len(runs))
	for i, run := range runs {
		out[i] = toRunRow(run)
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.snapshot.Reload(); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.respondError(w, http.StatusNotFound, CodeTableNotFound, "activity table not found, run the ETL first", nil)
		case errors.Is(err, store.ErrCorrupt):
			s.respondError(w, http.StatusUnprocessableEntity, CodeTableCorrupt, "activity table is corrupt, current table kept", err)
		default:
			s.respondError(w, http.StatusInternalServerError, CodeInternal, "failed to reload table", err)
		}
		return
	}

	st := s.snapshot.State()
	s.respondJSON(w, http.StatusOK, reloadResult{Rows: st.Table.Len(), LoadedAt: st.LoadedAt})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.opts.Pipeline == nil {
		s.respondError(w, http.StatusServiceUnavailable, CodeDisabled, "Strava credentials are not configured", nil)
		return
	}
	if !s.refreshing.TryLock() {
		s.respondError(w, http.StatusConflict, CodeBusy, "a refresh is already running", nil)
		return
	}
	defer s.refreshing.Unlock()

	opts := s.opts.RunOptions
	opts.Progress = nil
	// A client hanging up must not abort a run halfway through
	result, err := s.opts.Pipeline.Run(context.WithoutCancel(r.Context()), opts)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAuthFailure):
			s.respondError(w, http.StatusBadGateway, CodeAuthFailure, "Strava rejected the refresh token", err)
		case errors.Is(err, strava.ErrFetchFailure):
			s.respondError(w, http.StatusBadGateway, CodeFetchFailure, "fetching activities failed", err)
		default:
			s.respondError(w, http.StatusInternalServerError, CodeETLFailed, "ETL run failed", err)
		}
		return
	}

	if result.Written() {
		s.snapshot.Replace(result.Table)
	}
	out := refreshResult{
		Run: toRunRow(store.Run{
			ID:         result.ID,
			StartedAt:  result.StartedAt,
			FinishedAt: result.FinishedAt,
			Status:     result.Status,
			Pages:      result.Pages,
			Fetched:    result.Fetched,
			Rows:       result.Rows,
			Dropped:    result.Stats.Dropped(),
			OutputPath: result.OutputPath,
		}),
		Partial: result.Status == store.RunPartial,
	}
	if result.FetchErr != nil {
		out.Warning = result.FetchErr.Error()
	}
	s.respondJSON(w, http.StatusOK, out)
}

// respondJSON sends a success envelope
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	s.write(w, status, &apiResponse{Status: "success", Data: data, Metadata: s.metadata()})
}

// respondError sends an error envelope; err is logged, never sent
func (s *Server) respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("API error")
	}
	s.write(w, status, &apiResponse{
		Status:   "error",
		Metadata: s.metadata(),
		Error:    &apiError{Code: code, Message: message},
	})
}

func (s *Server) write(w http.ResponseWriter, status int, resp *apiResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func (s *Server) metadata() metadata {
	st := s.snapshot.State()
	md := metadata{Timestamp: time.Now().UTC(), TableRows: st.Table.Len()}
	if !st.LoadedAt.IsZero() {
		loaded := st.LoadedAt
		md.LoadedAt = &loaded
	}
	if st.Warning != nil {
		md.Warning = st.Warning.Error()
	}
	return md
}

// parseSelection reads year/month/day with an optional key prefix.
// Absent keys fall back to the matching field of fallback; "all" and ""
// mean All.
func parseSelection(q url.Values, prefix string, fallback analysis.Selection) (analysis.Selection, error) {
	sel := fallback
	fields := []struct {
		key string
		dst *int
	}{
		{prefix + "year", &sel.Year},
		{prefix + "month", &sel.Month},
		{prefix + "day", &sel.Day},
	}
	for _, f := range fields {
		if !q.Has(f.key) {
			continue
		}
		v := strings.TrimSpace(q.Get(f.key))
		if v == "" || strings.EqualFold(v, "all") {
			*f.dst = analysis.All
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return analysis.Selection{}, fmt.Errorf("%s must be an integer or \"all\", got %q", f.key, v)
		}
		*f.dst = n
	}
	return sel, nil
}

func parseIntParam(q url.Values, key string, fallback int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "Error:"); i >= 0 {
		// "Key: 'Selection.Month' Error:Field validation for 'Month' failed on the 'max' tag"
		return strings.TrimSpace(msg[i+len("Error:"):])
	}
	return msg
}

func toActivityRow(a activity.Activity) activityRow {
	return activityRow{
		ID:          a.ID,
		Name:        a.Name,
		Type:        a.Type,
		Date:        a.Date.Format(activity.DateLayout),
		DistanceKm:  a.DistanceKm,
		DurationMin: a.DurationMin,
		PaceMinKm:   a.Pace,
		Pace:        analysis.FormatPace(a.Pace),
		ElevationM:  a.ElevationM,
		AvgSpeedKmh: a.AvgSpeedKmh,
		MaxSpeedKmh: a.MaxSpeedKmh,
		Calories:    a.Calories,
		Kudos:       a.Kudos,
		MonthPeriod: string(a.Period()),
	}
}

func toRunRow(r store.Run) runRow {
	return runRow{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Status:     string(r.Status),
		Pages:      r.Pages,
		Fetched:    r.Fetched,
		Rows:       r.Rows,
		Dropped:    r.Dropped,
		OutputPath: r.OutputPath,
		Error:      r.Error,
	}
}
