package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"strava-dashboard/internal/activity"
	"strava-dashboard/internal/auth"
	"strava-dashboard/internal/metrics"
	"strava-dashboard/internal/store"
	"strava-dashboard/internal/strava"
)

// TokenRenewer exchanges a refresh token for an access token
type TokenRenewer interface {
	RenewToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*oauth2.Token, error)
}

// Fetcher pages through the athlete's activities
type Fetcher interface {
	FetchAll(ctx context.Context, perPage, maxPages int, onProgress func(strava.FetchProgress)) ([]strava.RawActivity, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// FetcherFactory builds a Fetcher authorized with accessToken
type FetcherFactory func(accessToken string) Fetcher

// ClientFactory returns a FetcherFactory producing strava clients
func ClientFactory(baseURL string, timeout time.Duration) FetcherFactory {
	return func(accessToken string) Fetcher {
		opts := []strava.Option{strava.WithTimeout(timeout)}
		if baseURL != "" {
			opts = append(opts, strava.WithBaseURL(baseURL))
		}
		return strava.NewClient(accessToken, opts...)
	}
}

// Credentials are the inputs of the refresh grant
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Pipeline runs renew -> fetch -> transform -> save
type Pipeline struct {
	Tokens      TokenRenewer
	NewFetcher  FetcherFactory
	Credentials Credentials
	Runs        *store.RunLog // optional run history

	// OnTokenRotated is called when Strava issues a new refresh token
	OnTokenRotated func(refreshToken string) error

	now func() time.Time
}

// RunOptions controls one ETL run
type RunOptions struct {
	PerPage    int
	MaxPages   int
	From, To   time.Time // optional inclusive date range; zero means unbounded
	OutputPath string
	Progress   chan<- Progress // closed when Run returns; nil disables reporting
}

// Pipeline phases reported through Progress
const (
	PhaseAuth      = "auth"
	PhaseFetch     = "fetch"
	PhaseTransform = "transform"
	PhaseSave      = "save"
)

// Progress reports pipeline progress
type Progress struct {
	Phase   string
	Page    int
	Fetched int
}

// RunResult describes a finished run
type RunResult struct {
	ID         string
	Status     store.RunStatus
	Pages      int
	Fetched    int
	Rows       int
	Stats      activity.TransformStats
	OutputPath string
	Table      activity.Table
	FetchErr   error // set when pagination stopped on a failed page
	StartedAt  time.Time
	FinishedAt time.Time
}

// Written reports whether the run replaced the table file
func (r *RunResult) Written() bool {
	return r.Status == store.RunSuccess || r.Status == store.RunPartial
}

// Run executes one ETL run. An auth failure aborts before any fetch and
// writes nothing. A failed page keeps the records gathered before it. A run
// that fetches nothing leaves the existing table untouched; fetched records
// that transform or filter down to nothing still replace it.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.Progress != nil {
		defer close(opts.Progress)
	}

	result := &RunResult{
		ID:         uuid.NewString(),
		OutputPath: opts.OutputPath,
		StartedAt:  p.clock(),
	}
	logger := log.With().Str("run_id", result.ID).Logger()

	// Phase 1: renew the access token
	p.report(opts.Progress, Progress{Phase: PhaseAuth})
	tok, err := p.Tokens.RenewToken(ctx, p.Credentials.ClientID, p.Credentials.ClientSecret, p.Credentials.RefreshToken)
	if err != nil {
		return p.fail(result, fmt.Errorf("renewing access token: %w", err))
	}
	if auth.Rotated(tok, p.Credentials.RefreshToken) {
		logger.Info().Msg("Strava issued a new refresh token")
		if p.OnTokenRotated != nil {
			if err := p.OnTokenRotated(tok.RefreshToken); err != nil {
				logger.Warn().Err(err).Msg("Failed to persist rotated refresh token")
			}
		}
	}

	// Phase 2: fetch every page
	fetcher := p.NewFetcher(tok.AccessToken)
	raw, fetchErr := fetcher.FetchAll(ctx, opts.PerPage, opts.MaxPages, func(fp strava.FetchProgress) {
		result.Pages = fp.Page
		p.report(opts.Progress, Progress{Phase: PhaseFetch, Page: fp.Page, Fetched: fp.Total})
	})
	result.Fetched = len(raw)
	if fetchErr != nil {
		result.FetchErr = fetchErr
		var fe *strava.FetchError
		if errors.As(fetchErr, &fe) {
			result.Pages = fe.Page - 1
		}
		logger.Warn().Err(fetchErr).Int("fetched", len(raw)).Msg("Fetch stopped early, keeping partial results")
	}
	short, daily := fetcher.RateLimitStatus()
	logger.Info().
		Int("pages", result.Pages).
		Int("fetched", result.Fetched).
		Int("short_remaining", short).
		Int("daily_remaining", daily).
		Msg("Fetched activities")

	if len(raw) == 0 {
		if fetchErr != nil {
			return p.fail(result, fetchErr)
		}
		logger.Info().Msg("No activities found, table left untouched")
		result.Status = store.RunEmpty
		p.finish(result, nil)
		return result, nil
	}

	// Phase 3: transform
	p.report(opts.Progress, Progress{Phase: PhaseTransform, Fetched: result.Fetched})
	table, stats := activity.Transform(raw)
	result.Stats = stats
	metrics.RecordDropped(metrics.ReasonMissingID, stats.MissingID)
	metrics.RecordDropped(metrics.ReasonBadDate, stats.BadDate)
	metrics.RecordDropped(metrics.ReasonDuplicate, stats.Duplicates)

	if !opts.From.IsZero() || !opts.To.IsZero() {
		before := table.Len()
		table = activity.FilterDateRange(table, opts.From, opts.To)
		logger.Info().Int("before", before).Int("after", table.Len()).Msg("Applied date range")
	}
	logger.Info().
		Int("rows", table.Len()).
		Int("missing_id", stats.MissingID).
		Int("bad_date", stats.BadDate).
		Int("duplicates", stats.Duplicates).
		Int("defaulted", stats.DefaultFields).
		Msg("Transformed activities")

	if table.Empty() {
		logger.Warn().Msg("No rows left after transform, saving an empty table")
	}

	// Phase 4: save
	p.report(opts.Progress, Progress{Phase: PhaseSave, Fetched: result.Fetched})
	if err := store.SaveCSV(table, opts.OutputPath); err != nil {
		return p.fail(result, fmt.Errorf("saving table: %w", err))
	}
	result.Rows = table.Len()
	result.Table = table
	logger.Info().Int("rows", result.Rows).Str("path", opts.OutputPath).Msg("Saved activity table")

	result.Status = store.RunSuccess
	if fetchErr != nil {
		result.Status = store.RunPartial
	}
	p.finish(result, fetchErr)
	return result, nil
}

func (p *Pipeline) fail(result *RunResult, err error) (*RunResult, error) {
	result.Status = store.RunFailed
	p.finish(result, err)
	log.Error().Err(err).Str("run_id", result.ID).Msg("ETL run failed")
	return result, err
}

// finish stamps the run, records metrics and appends it to the run history
func (p *Pipeline) finish(result *RunResult, runErr error) {
	result.FinishedAt = p.clock()
	metrics.RecordRun(string(result.Status), result.FinishedAt.Sub(result.StartedAt), result.Pages, result.Fetched)

	if p.Runs == nil {
		return
	}
	run := store.Run{
		ID:         result.ID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Status:     result.Status,
		Pages:      result.Pages,
		Fetched:    result.Fetched,
		Rows:       result.Rows,
		Dropped:    result.Stats.Dropped(),
	}
	if result.Written() {
		run.OutputPath = result.OutputPath
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := p.Runs.RecordRun(run); err != nil {
		log.Warn().Err(err).Str("run_id", result.ID).Msg("Failed to record ETL run")
	}
}

func (p *Pipeline) report(ch chan<- Progress, pr Progress) {
	if ch == nil {
		return
	}
	ch <- pr
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}
