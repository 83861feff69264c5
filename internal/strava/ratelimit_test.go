package strava

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestRateLimiterFailsWhenQuotaExhausted(t *testing.T) {
	r := NewUnpacedRateLimiter()
	h := http.Header{}
	h.Set("X-RateLimit-Usage", "100,120")
	h.Set("X-RateLimit-Limit", "100,1000")
	r.UpdateFromHeaders(h)

	err := r.Wait(context.Background())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Wait() error = %v, want ErrRateLimited", err)
	}
}

func TestRateLimiterDailyQuota(t *testing.T) {
	r := NewUnpacedRateLimiter()
	h := http.Header{}
	h.Set("X-RateLimit-Usage", "3,1000")
	r.UpdateFromHeaders(h)

	if err := r.Wait(context.Background()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Wait() error = %v, want ErrRateLimited", err)
	}
}

func TestRateLimiterCountsRequests(t *testing.T) {
	r := NewUnpacedRateLimiter()
	for i := 0; i < 3; i++ {
		if err := r.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	short, daily := r.Usage()
	if short != 3 || daily != 3 {
		t.Errorf("Usage() = %d, %d, want 3, 3", short, daily)
	}
}

func TestRateLimiterResetsExpiredWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := newRateLimiter(0, func() time.Time { return now })
	r.shortUsage = 100

	now = now.Add(16 * time.Minute)
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() after window reset error = %v", err)
	}
	if short, _ := r.Usage(); short != 1 {
		t.Errorf("short usage = %d, want 1", short)
	}
}

func TestRateLimiterHonoursCancelledContext(t *testing.T) {
	r := newRateLimiter(time.Hour, time.Now)
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestParsePair(t *testing.T) {
	tests := []struct {
		in     string
		a, b   int
		wantOK bool
	}{
		{"34,512", 34, 512, true},
		{" 1 , 2 ", 1, 2, true},
		{"", 0, 0, false},
		{"7", 0, 0, false},
		{"x,1", 0, 0, false},
	}
	for _, tt := range tests {
		a, b, ok := parsePair(tt.in)
		if ok != tt.wantOK || a != tt.a || b != tt.b {
			t.Errorf("parsePair(%q) = %d, %d, %v", tt.in, a, b, ok)
		}
	}
}
