package strava

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava rate limits:
// - 100 requests per 15 minutes
// - 1000 requests per day

// ErrRateLimited is returned when a quota window is exhausted
var ErrRateLimited = errors.New("rate limit exhausted")

// RateLimiter paces requests and tracks Strava quota usage.
// It never waits for a quota window to reset.
type RateLimiter struct {
	mu sync.Mutex

	// 15-minute window
	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	// Daily window
	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	// Minimum interval between requests
	minInterval time.Duration
	lastRequest time.Time

	now func() time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	return newRateLimiter(150*time.Millisecond, time.Now)
}

// NewUnpacedRateLimiter tracks quota without spacing requests apart
func NewUnpacedRateLimiter() *RateLimiter {
	return newRateLimiter(0, time.Now)
}

func newRateLimiter(minInterval time.Duration, now func() time.Time) *RateLimiter {
	t := now()
	return &RateLimiter{
		shortLimit:    100,
		shortResetsAt: t.Add(15 * time.Minute),
		dailyLimit:    1000,
		dailyResetsAt: t.Truncate(24 * time.Hour).Add(24 * time.Hour),
		minInterval:   minInterval,
		now:           now,
	}
}

// Wait spaces requests by the minimum interval. It fails immediately
// when either quota window is used up.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	// Reset windows if expired
	if now.After(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Add(15 * time.Minute)
	}
	if now.After(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	}

	if r.shortUsage >= r.shortLimit {
		return fmt.Errorf("%w: 15-minute window (%d/%d)", ErrRateLimited, r.shortUsage, r.shortLimit)
	}
	if r.dailyUsage >= r.dailyLimit {
		return fmt.Errorf("%w: daily window (%d/%d)", ErrRateLimited, r.dailyUsage, r.dailyLimit)
	}

	// Enforce minimum interval between requests
	if !r.lastRequest.IsZero() {
		if elapsed := now.Sub(r.lastRequest); elapsed < r.minInterval {
			waitTime := r.minInterval - elapsed
			r.mu.Unlock()
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				r.mu.Lock()
				return ctx.Err()
			}
			r.mu.Lock()
		}
	}

	r.shortUsage++
	r.dailyUsage++
	r.lastRequest = r.now()

	return nil
}

// UpdateFromHeaders updates rate limit state from Strava response headers
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage = short
		r.dailyUsage = daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit = short
		r.dailyLimit = daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}

// Usage returns current usage counts
func (r *RateLimiter) Usage() (shortUsage, dailyUsage int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortUsage, r.dailyUsage
}
