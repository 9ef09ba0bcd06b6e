package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/liqk/gate/common/logger"
	"github.com/redis/go-redis/v9"
)

//go:embed login_limit.lua
var loginLimitScript string

// Result contains the outcome of a rate limit check
type Result struct {
	Allowed           bool
	CurrentCount      int64
	Limit             int64
	RetryAfterSeconds int64
}

// LoginLimiter throttles login attempts per client address using a Redis
// fixed-window counter. The gateway carries no cross-request state itself,
// so the counter lives in Redis.
//
// The limiter fails open: if Redis is unreachable the attempt is allowed
// and the failure logged. Denial-by-outage belongs to rank resolution, not
// to login throttling.
type LoginLimiter struct {
	redis     *redis.Client
	script    *redis.Script
	logger    *logger.Logger
	limit     int64
	windowSec int
}

// NewLoginLimiter creates a limiter allowing limit attempts per windowSec
// seconds per client address.
func NewLoginLimiter(redisClient *redis.Client, log *logger.Logger, limit int64, windowSec int) *LoginLimiter {
	return &LoginLimiter{
		redis:     redisClient,
		script:    redis.NewScript(loginLimitScript),
		logger:    log,
		limit:     limit,
		windowSec: windowSec,
	}
}

// Check records one login attempt for clientAddr and reports whether it is
// allowed.
func (l *LoginLimiter) Check(ctx context.Context, clientAddr string) *Result {
	key := "login_limit:" + clientAddr

	raw, err := l.script.Run(ctx, l.redis, []string{key}, l.limit, l.windowSec).Result()
	if err != nil {
		l.logger.Warn("login rate limit check failed, allowing", "key", key, "error", err)
		return &Result{Allowed: true, Limit: l.limit}
	}

	arr, ok := raw.([]interface{})
	if !ok || len(arr) != 4 {
		l.logger.Warn("unexpected rate limit script result, allowing", "key", key)
		return &Result{Allowed: true, Limit: l.limit}
	}

	res := &Result{
		Allowed:           arr[0].(int64) == 1,
		CurrentCount:      arr[1].(int64),
		Limit:             arr[2].(int64),
		RetryAfterSeconds: arr[3].(int64),
	}

	if !res.Allowed {
		l.logger.Warn("login rate limit exceeded",
			"client", clientAddr,
			"current", res.CurrentCount,
			"limit", res.Limit,
			"retry_after", res.RetryAfterSeconds)
	}

	return res
}

// Reset clears the counter for a client address. Used by tests and admin
// tooling.
func (l *LoginLimiter) Reset(ctx context.Context, clientAddr string) error {
	if err := l.redis.Del(ctx, "login_limit:"+clientAddr).Err(); err != nil {
		return fmt.Errorf("resetting login limit: %w", err)
	}
	return nil
}
