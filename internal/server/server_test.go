package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/auth"
	"strava-dashboard/internal/service"
	"strava-dashboard/internal/store"
)

type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata metadata        `json:"metadata"`
	Error    *apiError       `json:"error"`
}

type fakeRefresher struct {
	result  *service.RunResult
	err     error
	calls   int
	ctxErr  error
	started chan struct{}
	block   chan struct{}
}

func (f *fakeRefresher) Run(ctx context.Context, opts service.RunOptions) (*service.RunResult, error) {
	f.calls++
	f.ctxErr = ctx.Err()
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

func testRun(id int64, y int, m time.Month, d int, km, min float64) activity.Activity {
	return activity.Activity{
		ID: id, Name: fmt.Sprintf("Run %d", id), Type: "Run",
		Date:       time.Date(y, m, d, 8, 0, 0, 0, time.UTC),
		DistanceKm: km, DurationMin: min, Pace: activity.ComputePace(min, km),
	}
}

func testTable() activity.Table {
	return activity.NewTable([]activity.Activity{
		testRun(1, 2023, time.March, 15, 10, 50),
		testRun(2, 2024, time.March, 15, 5, 30),
		testRun(3, 2024, time.April, 2, 1, 10),
	})
}

func newTestServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activities.csv")
	require.NoError(t, store.SaveCSV(testTable(), path))

	snap := service.NewSnapshot(path)
	require.NoError(t, snap.Load())
	return New(snap, opts), path
}

func doRequest(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	h := s.Routes()
	doRequest(t, h, http.MethodGet, "/api/v1/options")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "strava_dashboard_requests_total")
	assert.Contains(t, rec.Body.String(), "strava_dashboard_table_rows")
}

func TestDashboard(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	h := s.Routes()

	t.Run("all", func(t *testing.T) {
		rec, env := doRequest(t, h, http.MethodGet, "/api/v1/dashboard")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", env.Status)
		assert.Equal(t, 3, env.Metadata.TableRows)

		var view service.DashboardView
		require.NoError(t, json.Unmarshal(env.Data, &view))
		assert.Equal(t, 3, view.Rows)
		assert.Equal(t, "16.0 km", view.KPIs.TotalKm)
		assert.Equal(t, []int{2024, 2023}, view.Options.Years)
		assert.NotEmpty(t, view.Charts)
	})

	t.Run("year change resets day", func(t *testing.T) {
		rec, env := doRequest(t, h, http.MethodGet,
			"/api/v1/dashboard?year=2023&month=3&day=15&prev_year=2024&prev_month=3")
		require.Equal(t, http.StatusOK, rec.Code)

		var view service.DashboardView
		require.NoError(t, json.Unmarshal(env.Data, &view))
		assert.Equal(t, 2023, view.Selection.Year)
		assert.Equal(t, 3, view.Selection.Month)
		assert.Equal(t, 0, view.Selection.Day)
		assert.Equal(t, 1, view.Rows)
	})

	t.Run("empty result", func(t *testing.T) {
		rec, env := doRequest(t, h, http.MethodGet, "/api/v1/dashboard?year=2022")
		require.Equal(t, http.StatusOK, rec.Code)

		var view service.DashboardView
		require.NoError(t, json.Unmarshal(env.Data, &view))
		assert.Equal(t, 0, view.Rows)
		assert.Equal(t, "N/A", view.KPIs.MeanPace)
	})

	badQueries := []string{
		"/api/v1/dashboard?year=abc",
		"/api/v1/dashboard?month=13",
		"/api/v1/dashboard?day=0x1",
		"/api/v1/dashboard?prev_month=-1",
	}
	for _, target := range badQueries {
		t.Run(target, func(t *testing.T) {
			rec, env := doRequest(t, h, http.MethodGet, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, CodeValidation, env.Error.Code)
		})
	}
}

func TestOptions(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	rec, env := doRequest(t, s.Routes(), http.MethodGet, "/api/v1/options?year=2024&month=all")
	require.Equal(t, http.StatusOK, rec.Code)

	var opts struct {
		Years  []int `json:"years"`
		Months []int `json:"months"`
		Days   []int `json:"days"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &opts))
	assert.Equal(t, []int{3, 4}, opts.Months)
	assert.Equal(t, []int{2, 15}, opts.Days)
}

func TestActivities(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	h := s.Routes()

	rec, env := doRequest(t, h, http.MethodGet, "/api/v1/activities?year=2024&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []activityRow
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].ID, "newest first")
	assert.Equal(t, "2024-04", rows[0].MonthPeriod)
	assert.Equal(t, "10:00", rows[0].Pace)

	rec, _ = doRequest(t, h, http.MethodGet, "/api/v1/activities?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivitiesCSV(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/activities.csv?year=2024", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	table, dropped, err := store.ReadCSV(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, 2, table.Len())

	rec, env := doRequest(t, s.Routes(), http.MethodGet, "/api/v1/activities.csv?month=13")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeValidation, env.Error.Code)
}

func TestReload(t *testing.T) {
	s, path := newTestServer(t, Options{})
	h := s.Routes()

	more := append(testTable().Rows(), testRun(4, 2024, time.May, 1, 21.1, 120))
	require.NoError(t, store.SaveCSV(activity.NewTable(more), path))

	rec, env := doRequest(t, h, http.MethodPost, "/api/v1/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, env.Metadata.TableRows)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	rec, env = doRequest(t, h, http.MethodPost, "/api/v1/reload")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeTableCorrupt, env.Error.Code)
	assert.Equal(t, 4, env.Metadata.TableRows, "failed reload keeps the current table")

	require.NoError(t, os.Remove(path))
	rec, env = doRequest(t, h, http.MethodPost, "/api/v1/reload")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeTableNotFound, env.Error.Code)
}

func TestRefresh(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s, _ := newTestServer(t, Options{})
		rec, env := doRequest(t, s.Routes(), http.MethodPost, "/api/v1/refresh")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, CodeDisabled, env.Error.Code)
	})

	t.Run("success swaps snapshot", func(t *testing.T) {
		fresh := activity.NewTable([]activity.Activity{testRun(9, 2025, time.January, 1, 5, 25)})
		ref := &fakeRefresher{result: &service.RunResult{ID: "run-1", Status: store.RunSuccess, Rows: 1, Table: fresh}}
		s, _ := newTestServer(t, Options{Pipeline: ref})

		rec, env := doRequest(t, s.Routes(), http.MethodPost, "/api/v1/refresh")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, ref.calls)
		assert.Equal(t, 1, env.Metadata.TableRows)

		var out refreshResult
		require.NoError(t, json.Unmarshal(env.Data, &out))
		assert.Equal(t, "run-1", out.Run.ID)
		assert.False(t, out.Partial)
	})

	t.Run("client disconnect does not cancel the run", func(t *testing.T) {
		ref := &fakeRefresher{result: &service.RunResult{ID: "run-3", Status: store.RunEmpty}}
		s, _ := newTestServer(t, Options{Pipeline: ref})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, req)

		assert.Equal(t, 1, ref.calls)
		assert.NoError(t, ref.ctxErr)
	})

	t.Run("empty run keeps snapshot", func(t *testing.T) {
		ref := &fakeRefresher{result: &service.RunResult{ID: "run-2", Status: store.RunEmpty}}
		s, _ := newTestServer(t, Options{Pipeline: ref})

		rec, env := doRequest(t, s.Routes(), http.MethodPost, "/api/v1/refresh")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 3, env.Metadata.TableRows)
	})

	t.Run("auth failure", func(t *testing.T) {
		ref := &fakeRefresher{
			result: &service.RunResult{Status: store.RunFailed},
			err:    fmt.Errorf("renewing access token: %w", auth.ErrAuthFailure),
		}
		s, _ := newTestServer(t, Options{Pipeline: ref})

		rec, env := doRequest(t, s.Routes(), http.MethodPost, "/api/v1/refresh")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, CodeAuthFailure, env.Error.Code)
		assert.Equal(t, 3, env.Metadata.TableRows)
	})

	t.Run("other failure", func(t *testing.T) {
		ref := &fakeRefresher{result: &service.RunResult{Status: store.RunFailed}, err: errors.New("disk full")}
		s, _ := newTestServer(t, Options{Pipeline: ref})

		rec, env := doRequest(t, s.Routes(), http.MethodPost, "/api/v1/refresh")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, CodeETLFailed, env.Error.Code)
		assert.NotContains(t, rec.Body.String(), "disk full", "internal errors are logged, not returned")
	})

	t.Run("concurrent refresh rejected", func(t *testing.T) {
		ref := &fakeRefresher{
			result:  &service.RunResult{Status: store.RunEmpty},
			started: make(chan struct{}),
			block:   make(chan struct{}),
		}
		s, _ := newTestServer(t, Options{Pipeline: ref})
		h := s.Routes()

		done := make(chan int)
		go func() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
			done <- rec.Code
		}()

		select {
		case <-ref.started:
		case <-time.After(time.Second):
			t.Fatal("first refresh never started")
		}

		rec, env := doRequest(t, h, http.MethodPost, "/api/v1/refresh")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, CodeBusy, env.Error.Code)

		close(ref.block)
		assert.Equal(t, http.StatusOK, <-done)
	})
}

func TestRuns(t *testing.T) {
	runs, err := store.NewTestRunLog()
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, runs.RecordRun(store.Run{
			ID:         fmt.Sprintf("run-%d", i),
			StartedAt:  start.Add(time.Duration(i) * time.Hour),
			FinishedAt: start.Add(time.Duration(i)*time.Hour + time.Minute),
			Status:     store.RunSuccess,
		}))
	}

	s, _ := newTestServer(t, Options{Runs: runs})
	rec, env := doRequest(t, s.Routes(), http.MethodGet, "/api/v1/runs?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []runRow
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out, 2)
	assert.Equal(t, "run-2", out[0].ID)

	s2, _ := newTestServer(t, Options{})
	rec, _ = doRequest(t, s2.Routes(), http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
