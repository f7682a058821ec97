package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/core/port"
	appLogger "github.com/arklim/social-platform-trust/internal/infra/logger"
)

const (
	rateLimitProblemType  = "https://trust.social-platform.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// ProblemDetails represents an RFC 9457 compatible error payload for rate limits.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// RateLimiter turns AttemptLimiter windows into gin middleware.
type RateLimiter struct {
	limiter port.AttemptLimiter
	logger  *zap.Logger
	now     func() time.Time
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(limiter port.AttemptLimiter, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{limiter: limiter, logger: log, now: time.Now}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit enforces rule. Limiter failures let the request through.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rl == nil || rl.limiter == nil || rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		identifier, ok := rule.Identifier(c)
		if !ok {
			c.Next()
			return
		}

		now := rl.now()
		res, err := rl.limiter.Hit(c.Request.Context(), rule.Name+":"+identifier, rule.Limit, rule.Window, now)
		if err != nil {
			appLogger.WithContext(c.Request.Context(), rl.logger).Warn("rate limit check failed",
				zap.String("rule", rule.Name),
				zap.String("identifier", appLogger.MaskIP(identifier)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		headers := c.Writer.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if res.Allowed {
			c.Next()
			return
		}

		retrySeconds := int(math.Ceil(res.ResetAt.Sub(now).Seconds()))
		if retrySeconds < 0 {
			retrySeconds = 0
		}
		headers.Set("Retry-After", strconv.Itoa(retrySeconds))

		instance := c.FullPath()
		if instance == "" {
			instance = c.Request.URL.Path
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
			Type:       rateLimitProblemType,
			Title:      rateLimitProblemTitle,
			Status:     http.StatusTooManyRequests,
			Detail:     "Too many requests. Try again in " + strconv.Itoa(retrySeconds) + " seconds.",
			Instance:   instance,
			RetryAfter: retrySeconds,
			TraceID:    GetTraceID(c),
		})
	}
}
