package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const testCaller = "operator@example.org"

// TestRateLimiter_GlobalLimitEnforced verifies that the global rate limit
// is enforced across all requests regardless of caller identity.
func TestRateLimiter_GlobalLimitEnforced(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	// Create limiter: 10 RPS global, 50 RPS caller (global is more restrictive)
	rl := NewInMemoryRateLimiter(&Config{
		GlobalRPS:   10,
		GlobalBurst: 10, // use override value
		CallerRPS:   50,
		UnAuthRPS:   2,
	})
	defer rl.Close()

	// Test: Send 11 requests with a caller, expect 11th to fail
	// Global limit (10) should be hit before caller limit (50)
	successCount := 0

	for i := 0; i < 11; i++ {
		if rl.Allow(testCaller) {
			successCount++
		}
	}

	// Expect exactly 10 to succeed (global limit)
	if successCount != 10 {
		t.Errorf("expected 10 successful requests, got %d", successCount)
	}
}

// TestRateLimiter_CallerLimitEnforced verifies that per-caller rate limits
// are enforced independently from the global limit.
func TestRateLimiter_CallerLimitEnforced(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	// Create limiter: 100 RPS global, 5 RPS caller, 2 RPS unauth
	rl := NewInMemoryRateLimiter(&Config{
		GlobalRPS:   100,
		CallerRPS:   5,
		CallerBurst: 5, // use override value
		UnAuthRPS:   2,
	})
	defer rl.Close()

	// Test: Send 6 requests with the same caller, expect 6th to fail
	successCount := 0

	for i := 0; i < 6; i++ {
		if rl.Allow(testCaller) {
			successCount++
		}
	}

	// Expect exactly 5 to succeed (caller limit)
	if successCount != 5 {
		t.Errorf("expected 5 successful requests, got %d", successCount)
	}
}

// TestRateLimiter_AnonymousLimitEnforced verifies that requests without a
// caller identity are rate limited separately.
func TestRateLimiter_AnonymousLimitEnforced(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	// Create limiter: 100 RPS global, 50 RPS caller, 2 RPS unauth
	rl := NewInMemoryRateLimiter(&Config{
		GlobalRPS:   100,
		CallerRPS:   50,
		UnAuthRPS:   2,
		UnAuthBurst: 2, // use override value
	})
	defer rl.Close()

	// Test: Send 3 requests with empty caller, expect 3rd to fail
	successCount := 0

	for i := 0; i < 3; i++ {
		if rl.Allow("") {
			successCount++
		}
	}

	// Expect exactly 2 to succeed (anonymous limit)
	if successCount != 2 {
		t.Errorf("expected 2 successful requests, got %d", successCount)
	}
}

// TestRateLimiter_CallerIsolation verifies that rate limits for different
// callers are tracked independently.
func TestRateLimiter_CallerIsolation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	// Create limiter: 100 RPS global, 5 RPS caller
	rl := NewInMemoryRateLimiter(&Config{
		GlobalRPS:   100,
		CallerRPS:   5,
		CallerBurst: 5, // use override value
		UnAuthRPS:   2,
	})
	defer rl.Close()

	caller1 := "benin@example.org"
	caller2 := "togo@example.org"

	// Caller 1 uses all 5 requests
	for i := 0; i < 5; i++ {
		if !rl.Allow(caller1) {
			t.Errorf("caller1 request %d should succeed", i+1)
		}
	}

	// Caller 1's 6th request fails
	if rl.Allow(caller1) {
		t.Error("caller1 should be rate limited")
	}

	// Caller 2 should still have 5 requests available
	for i := 0; i < 5; i++ {
		if !rl.Allow(caller2) {
			t.Errorf("caller2 request %d should succeed", i+1)
		}
	}
}

// TestRateLimiter_ConcurrentAccess verifies that the rate limiter is safe
// for concurrent use by multiple goroutines.
func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	rl := NewInMemoryRateLimiter(&Config{
		GlobalRPS: 100,
		CallerRPS: 50,
		UnAuthRPS: 10,
	})
	defer rl.Close()

	// Launch 10 goroutines, each making 10 requests
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func(caller string) {
			defer wg.Done()

			for j := 0; j < 10; j++ {
				_ = rl.Allow(caller)
			}
		}(fmt.Sprintf("operator-%d@example.org", i))
	}

	wg.Wait()
}

// TestComputeBurstCapacity verifies the burst capacity defaulting rule.
func TestComputeBurstCapacity(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	// Default: 2 × rate
	if got := computeBurstCapacity(25, 0); got != 50 {
		t.Errorf("expected default burst 50, got %d", got)
	}

	// Override wins
	if got := computeBurstCapacity(25, 5); got != 5 {
		t.Errorf("expected override burst 5, got %d", got)
	}
}

// TestRateLimitMiddleware_RejectsWithProblemDetail verifies the middleware
// answers a limited request with a 429 problem+json body.
func TestRateLimitMiddleware_RejectsWithProblemDetail(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	rl := NewInMemoryRateLimiter(&Config{
		GlobalRPS:   1,
		GlobalBurst: 1,
		CallerRPS:   1,
		UnAuthRPS:   1,
	})
	defer rl.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RateLimit(rl, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First request consumes the single global token.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rr.Code)
	}

	// Second request is limited.
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected problem+json content type, got %q", ct)
	}

	var problem map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to parse problem body: %v", err)
	}

	if problem["title"] != "Too Many Requests" {
		t.Errorf("expected title %q, got %v", "Too Many Requests", problem["title"])
	}

	if problem["instance"] != "/api/v1/records" {
		t.Errorf("expected instance %q, got %v", "/api/v1/records", problem["instance"])
	}
}
