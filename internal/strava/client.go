package strava

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	BaseURL = "https://www.strava.com/api/v3"

	DefaultTimeout = 15 * time.Second
)

// ErrFetchFailure marks a failed activities page request
var ErrFetchFailure = errors.New("fetch failure")

// FetchError reports the page that stopped pagination
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailure, e.Err}
}

// Client is a Strava API client
type Client struct {
	baseURL     string
	timeout     time.Duration
	httpClient  *http.Client
	rateLimiter *RateLimiter
	token       string
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at a different API root
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying transport client.
// The bearer header is still added per request.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimiter replaces the default limiter
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) { c.rateLimiter = r }
}

// NewClient creates a new Strava API client authenticated with accessToken
func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     BaseURL,
		timeout:     DefaultTimeout,
		rateLimiter: NewRateLimiter(),
		token:       accessToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
		c.httpClient = oauth2.NewClient(context.Background(), ts)
	}
	return c
}

// PageResult is one decoded page of activities
type PageResult struct {
	Activities []RawActivity
	Skipped    int // array elements that were not activity objects
	Mistyped   int // optional fields dropped because of a wrong JSON type
}

// GetActivities fetches one page of the athlete's activities
func (c *Client) GetActivities(ctx context.Context, page, perPage int) (PageResult, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return PageResult{}, err
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	body, err := c.get(ctx, "/athlete/activities", params)
	if err != nil {
		return PageResult{}, err
	}

	return decodePage(body)
}

// decodePage decodes a JSON array record by record so one odd element
// cannot poison the whole page. Elements that are not objects, or whose id
// is not an integer, are skipped.
func decodePage(body []byte) (PageResult, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return PageResult{}, fmt.Errorf("decoding activities: %w", err)
	}

	res := PageResult{Activities: make([]RawActivity, 0, len(items))}
	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			res.Skipped++
			continue
		}
		var a RawActivity
		if err := json.Unmarshal(trimmed, &a); err != nil {
			var mistyped int
			var ok bool
			a, mistyped, ok = decodeLenient(trimmed)
			if !ok {
				res.Skipped++
				continue
			}
			res.Mistyped += mistyped
		}
		res.Activities = append(res.Activities, a)
	}
	if res.Mistyped > 0 {
		log.Debug().Int("fields", res.Mistyped).Msg("Dropped mistyped activity fields")
	}
	return res, nil
}

// decodeLenient decodes an activity field by field. An optional field with
// the wrong type is left nil and counted.
func decodeLenient(obj []byte) (RawActivity, int, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return RawActivity{}, 0, false
	}

	var a RawActivity
	if !decodeField(fields, "id", &a.ID) {
		return RawActivity{}, 0, false
	}

	ok := []bool{
		decodeField(fields, "name", &a.Name),
		decodeField(fields, "type", &a.Type),
		decodeField(fields, "sport_type", &a.SportType),
		decodeField(fields, "start_date_local", &a.StartDateLocal),
		decodeField(fields, "distance", &a.Distance),
		decodeField(fields, "moving_time", &a.MovingTime),
		decodeField(fields, "elapsed_time", &a.ElapsedTime),
		decodeField(fields, "total_elevation_gain", &a.TotalElevationGain),
		decodeField(fields, "average_speed", &a.AverageSpeed),
		decodeField(fields, "max_speed", &a.MaxSpeed),
		decodeField(fields, "calories", &a.Calories),
		decodeField(fields, "kudos_count", &a.KudosCount),
		decodeField(fields, "map", &a.Map),
	}
	mistyped := 0
	for _, v := range ok {
		if !v {
			mistyped++
		}
	}
	return a, mistyped, true
}

// decodeField sets *dst from fields[key], leaving it nil when the key is
// absent or does not decode into T
func decodeField[T any](fields map[string]json.RawMessage, key string, dst **T) bool {
	raw, present := fields[key]
	if !present {
		return true
	}
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	*dst = v
	return true
}

// FetchProgress is reported after each page
type FetchProgress struct {
	Page    int
	Count   int // records on this page
	Total   int // records so far
	Skipped int
}

// FetchAll pages through activities 1..maxPages. It stops at the first empty
// page, at maxPages, or at the first failed request. On failure the records
// gathered so far are returned together with a *FetchError.
func (c *Client) FetchAll(ctx context.Context, perPage, maxPages int, onProgress func(FetchProgress)) ([]RawActivity, error) {
	var all []RawActivity
	skipped := 0

	for page := 1; page <= maxPages; page++ {
		res, err := c.GetActivities(ctx, page, perPage)
		if err != nil {
			log.Warn().Err(err).Int("page", page).Int("fetched", len(all)).Msg("Stopping pagination")
			return all, &FetchError{Page: page, Err: err}
		}

		skipped += res.Skipped
		if len(res.Activities) == 0 && res.Skipped == 0 {
			log.Debug().Int("page", page).Msg("Empty page, end of data")
			break
		}

		all = append(all, res.Activities...)
		if onProgress != nil {
			onProgress(FetchProgress{Page: page, Count: len(res.Activities), Total: len(all), Skipped: skipped})
		}
		log.Debug().Int("page", page).Int("count", len(res.Activities)).Int("total", len(all)).Msg("Fetched page")
	}

	short, daily := c.rateLimiter.Status()
	log.Debug().Int("short_remaining", short).Int("daily_remaining", daily).Msg("Rate limit status")

	return all, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if req.Header.Get("Authorization") == "" && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
