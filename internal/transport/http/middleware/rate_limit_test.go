package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type fakeAttemptLog struct {
	count    int
	oldest   time.Time
	countErr error

	recordErr   error
	countedKeys []string
	recordedKey string
	recordedTTL time.Duration
	recordCalls int
}

func (f *fakeAttemptLog) CountInWindow(_ context.Context, key string, _ time.Time) (int, time.Time, error) {
	f.countedKeys = append(f.countedKeys, key)
	return f.count, f.oldest, f.countErr
}

func (f *fakeAttemptLog) RecordAttempt(_ context.Context, key string, _ time.Time, ttl time.Duration) error {
	f.recordedKey = key
	f.recordedTTL = ttl
	f.recordCalls++
	return f.recordErr
}

func sendVerificationRule(limit int) RateLimitRule {
	return RateLimitRule{
		Name:   "send_verification_ip",
		Limit:  limit,
		Window: time.Minute,
	}
}

func throttledRouter(limiter *RateLimiter, rule RateLimitRule) *gin.Engine {
	router := gin.New()
	router.Use(limiter.RateLimit(rule))
	router.POST("/send-verification", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiterAllowsWhenBelowLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	oldest := now.Add(-30 * time.Second)

	store := &fakeAttemptLog{count: 2, oldest: oldest}
	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := throttledRouter(limiter, sendVerificationRule(5))

	// httptest.NewRequest sets RemoteAddr 192.0.2.1, which becomes the key.
	req := httptest.NewRequest(http.MethodPost, "/send-verification", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	if store.recordCalls != 1 {
		t.Fatalf("expected record attempt to be called once, got %d", store.recordCalls)
	}

	if store.recordedKey != "send_verification_ip:192.0.2.1" {
		t.Fatalf("unexpected storage key %q", store.recordedKey)
	}

	if store.recordedTTL != 2*time.Minute {
		t.Fatalf("expected attempt TTL of twice the window, got %v", store.recordedTTL)
	}

	if got := rr.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("expected limit header 5, got %q", got)
	}

	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("expected remaining header 2, got %q", got)
	}

	expectedReset := oldest.Add(time.Minute).Unix()
	if got := rr.Header().Get("X-RateLimit-Reset"); got != strconv.FormatInt(expectedReset, 10) {
		t.Fatalf("expected reset header %d, got %q", expectedReset, got)
	}

	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no retry-after header, got %q", got)
	}
}

func TestRateLimiterBlocksWhenLimitExceeded(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	oldest := now.Add(-30 * time.Second)

	store := &fakeAttemptLog{count: 5, oldest: oldest}
	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := throttledRouter(limiter, sendVerificationRule(5))

	req := httptest.NewRequest(http.MethodPost, "/send-verification", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}

	if store.recordCalls != 0 {
		t.Fatalf("expected no record attempt when blocked, got %d", store.recordCalls)
	}

	if got := rr.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected retry-after 30, got %q", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	if problem.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected problem status %d", problem.Status)
	}

	if problem.RetryAfter != 30 {
		t.Fatalf("expected problem retry_after 30, got %d", problem.RetryAfter)
	}

	if !strings.Contains(problem.Detail, "send-verification") {
		t.Fatalf("expected detail to name the throttled endpoint, got %q", problem.Detail)
	}
}

func TestRateLimiterFailsOpenOnStoreError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	store := &fakeAttemptLog{countErr: errors.New("redis down")}
	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := throttledRouter(limiter, sendVerificationRule(5))

	req := httptest.NewRequest(http.MethodPost, "/send-verification", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when failing open, got %d", rr.Code)
	}

	if store.recordCalls != 0 {
		t.Fatalf("expected no record attempt on failure, got %d", store.recordCalls)
	}
}
