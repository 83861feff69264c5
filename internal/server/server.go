// Package server exposes the activity dashboard over HTTP.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"strava-dashboard/internal/service"
	"strava-dashboard/internal/store"
)

// Refresher runs the ETL pipeline
type Refresher interface {
	Run(ctx context.Context, opts service.RunOptions) (*service.RunResult, error)
}

// Options configures a Server
type Options struct {
	Locale     string
	Pipeline   Refresher          // nil disables POST /api/v1/refresh
	RunOptions service.RunOptions // used for refresh runs
	Runs       *store.RunLog      // nil disables GET /api/v1/runs
}

// Server serves the dashboard API over a table snapshot
type Server struct {
	snapshot *service.Snapshot
	opts     Options
	validate *validator.Validate

	refreshing sync.Mutex
}

// New creates a Server reading from snapshot
func New(snapshot *service.Snapshot, opts Options) *Server {
	if opts.Locale == "" {
		opts.Locale = "en"
	}
	return &Server{
		snapshot: snapshot,
		opts:     opts,
		validate: validator.New(),
	}
}

// Routes builds the HTTP handler
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(recordMetrics)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/options", s.handleOptions)
		r.Get("/activities", s.handleActivities)
		r.Get("/activities.csv", s.handleActivitiesCSV)
		r.Get("/runs", s.handleRuns)
		r.Post("/reload", s.handleReload)
		r.Post("/refresh", s.handleRefresh)
	})

	return r
}

// NewHTTPServer wraps Routes in an http.Server with conservative timeouts.
// Refresh requests run a full ETL pass, hence the long write timeout.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      15 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
