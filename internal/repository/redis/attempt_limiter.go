package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"

	"github.com/arklim/social-platform-trust/internal/core/port"
)

const defaultLimiterPrefix = "ratelimit"

// slidingWindowScript trims, counts and conditionally records a hit in one step.
// Returns {allowed, used before the hit, score of the oldest entry or ""}.
var slidingWindowScript = red.NewScript(`
local key = KEYS[1]
redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. ARGV[1])
local used = redis.call('ZCARD', key)
local allowed = 0
if used < tonumber(ARGV[3]) then
	redis.call('ZADD', key, ARGV[2], ARGV[5])
	redis.call('PEXPIRE', key, ARGV[4])
	allowed = 1
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local score = ''
if #oldest > 0 then
	score = oldest[2]
end
return {allowed, used, score}
`)

// AttemptLimiter implements a sliding window over Redis sorted sets. Each hit is
// a member scored by its timestamp in nanoseconds.
type AttemptLimiter struct {
	client *red.Client
	prefix string
}

// NewAttemptLimiter wires a Redis client into a sliding-window limiter.
func NewAttemptLimiter(client *red.Client, keyPrefix string) *AttemptLimiter {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultLimiterPrefix
	}
	return &AttemptLimiter{client: client, prefix: prefix}
}

// Hit trims expired attempts, counts the rest and records the new attempt when under limit.
// Rejected attempts are not recorded.
func (l *AttemptLimiter) Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (port.LimitResult, error) {
	if limit <= 0 || window <= 0 {
		return port.LimitResult{}, errors.New("limit and window must be positive")
	}

	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	nanos := now.UnixNano()

	values, err := slidingWindowScript.Run(ctx, l.client, []string{redisKey},
		strconv.FormatInt(now.Add(-window).UnixNano(), 10),
		strconv.FormatInt(nanos, 10),
		limit,
		window.Milliseconds(),
		fmt.Sprintf("%d-%s", nanos, uuid.NewString()),
	).Slice()
	if err != nil {
		return port.LimitResult{}, fmt.Errorf("redis sliding window: %w", err)
	}
	if len(values) != 3 {
		return port.LimitResult{}, fmt.Errorf("redis sliding window: unexpected reply %v", values)
	}

	allowed, _ := values[0].(int64)
	used, _ := values[1].(int64)

	result := port.LimitResult{ResetAt: now.Add(window)}
	if raw, _ := values[2].(string); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return port.LimitResult{}, fmt.Errorf("parse oldest score %q: %w", raw, err)
		}
		result.ResetAt = time.Unix(0, int64(score)).Add(window)
	}

	if allowed == 1 {
		result.Allowed = true
		result.Remaining = limit - int(used) - 1
	}
	return result, nil
}

var _ port.AttemptLimiter = (*AttemptLimiter)(nil)
