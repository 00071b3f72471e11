package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	throttleProblemType  = "https://api.washlytics.example.com/errors/too-many-signup-attempts"
	throttleProblemTitle = "Too Many Attempts"
)

// RateLimitStore is the sliding-window attempt log backing the limiter.
type RateLimitStore interface {
	// CountInWindow drops attempts older than windowStart and reports how many
	// remain plus the oldest retained attempt time (zero when the log is empty).
	CountInWindow(ctx context.Context, key string, windowStart time.Time) (int, time.Time, error)
	// RecordAttempt appends an attempt and bounds the key's lifetime to ttl.
	RecordAttempt(ctx context.Context, key string, at time.Time, ttl time.Duration) error
}

// RateLimitRule throttles one sign-up endpoint. Every guarded route is
// pre-auth, so the client IP is the only identity available to key on.
type RateLimitRule struct {
	Name   string // storage key segment, e.g. "send_verification_ip"
	Limit  int
	Window time.Duration
}

// RateLimiter throttles the verification and registration endpoints per
// client IP. Store failures fail open: sign-up must stay reachable when
// Redis is down.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// ProblemDetails is the RFC 9457 payload returned on throttled requests.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// RateLimit enforces rule for the requesting client IP.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.store == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		now := rl.now()
		key := fmt.Sprintf("%s:%s", rule.Name, ip)

		count, oldest, err := rl.store.CountInWindow(ctx, key, now.Add(-rule.Window))
		if err != nil {
			rl.logger.Warn("rate limit check failed", zap.String("rule", rule.Name), zap.Error(err))
			c.Next()
			return
		}

		reset := now.Add(rule.Window)
		if count > 0 && !oldest.IsZero() {
			reset = oldest.Add(rule.Window)
		}

		if count >= rule.Limit {
			rl.reject(c, rule, reset.Sub(now), reset)
			return
		}

		// TTL outlives the window so a blocked client cannot shed history
		// by simply going quiet until the key expires.
		if err := rl.store.RecordAttempt(ctx, key, now, 2*rule.Window); err != nil {
			rl.logger.Warn("rate limit record failed", zap.String("rule", rule.Name), zap.Error(err))
			c.Next()
			return
		}
		count++

		rl.setHeaders(c, rule.Limit, rule.Limit-count, reset)
		c.Next()
	}
}

func (rl *RateLimiter) setHeaders(c *gin.Context, limit, remaining int, reset time.Time) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

func (rl *RateLimiter) reject(c *gin.Context, rule RateLimitRule, retryAfter time.Duration, reset time.Time) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 0 {
		seconds = 0
	}

	rl.setHeaders(c, rule.Limit, 0, reset)
	c.Writer.Header().Set("Retry-After", strconv.Itoa(seconds))

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	problem := ProblemDetails{
		Type:       throttleProblemType,
		Title:      throttleProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many %s requests from this address. Try again in %d seconds.", endpointLabel(rule.Name), seconds),
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, problem)
}

// endpointLabel turns a rule name like "send_verification_ip" into the
// reader-facing "send-verification".
func endpointLabel(name string) string {
	name = strings.TrimSuffix(name, "_ip")
	return strings.ReplaceAll(name, "_", "-")
}
