package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key pattern: ratelimit:{user_id}:{action}, expiring with the
// window.

const (
	ActionUpload  = "uploads"
	ActionEnhance = "enhance"
)

type Policy struct {
	Limit  int
	Window time.Duration
}

// RateLimitConfig maps an action to its policy.
type RateLimitConfig map[string]Policy

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		ActionUpload:  {Limit: 20, Window: time.Minute},
		ActionEnhance: {Limit: 10, Window: time.Minute},
	}
}

type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, config: config}
}

// Allow consumes one unit of action for subject. Actions without a policy are
// always allowed.
func (r *RateLimiter) Allow(ctx context.Context, action, subject string) (*RateLimitResult, error) {
	policy, ok := r.config[action]
	if !ok || policy.Limit <= 0 {
		return &RateLimitResult{Allowed: true, Remaining: -1}, nil
	}
	return r.checkLimit(ctx, Key(subject, action), policy.Limit, policy.Window)
}

func Key(subject, action string) string {
	return fmt.Sprintf("ratelimit:%s:%s", subject, action)
}

var limitScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	else
		return {0, 0, ttl}
	end
`)

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	raw, err := limitScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	return parseLimitResult(raw, limit)
}

func parseLimitResult(raw interface{}, limit int) (*RateLimitResult, error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	ints := make([]int64, 3)
	for i := range ints {
		v, ok := values[i].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected rate limit result format")
		}
		ints[i] = v
	}
	return &RateLimitResult{
		Allowed:   ints[0] == 1,
		Remaining: int(ints[1]),
		ResetIn:   time.Duration(ints[2]) * time.Second,
		Limit:     limit,
	}, nil
}

// ResetUser clears every configured limit of a user.
func (r *RateLimiter) ResetUser(ctx context.Context, userID string) error {
	keys := make([]string, 0, len(r.config))
	for action := range r.config {
		keys = append(keys, Key(userID, action))
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
