package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then admits the request
// if the remaining count is under the limit.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, ttl)
		return 1
	end

	return 0
`)

// RedisRateLimiter is a sliding window limiter shared by every replica.
// Page loads fan out into three upstream calls, so the inbound limit is what
// keeps the shared Discovery API quota from being drained by one client.
type RedisRateLimiter struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter creates a new Redis-backed rate limiter.
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:    rdb,
		prefix: "rl:discovery:",
		now:    time.Now,
	}
}

// RateLimitConfig configures the rate limit for a specific scope.
type RateLimitConfig struct {
	Limit  int           // Max requests allowed
	Window time.Duration // Time window
	KeyFn  func(r *http.Request) string
}

// Middleware returns an HTTP middleware that enforces the rate limit.
func (l *RedisRateLimiter) Middleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFn := cfg.KeyFn
	if keyFn == nil {
		keyFn = KeyByIP
	}
	retryAfter := strconv.Itoa(int(cfg.Window.Round(time.Second).Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.rdb == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := l.isAllowed(r.Context(), l.prefix+keyFn(r), cfg.Limit, cfg.Window)
			if err != nil {
				// fail open
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (l *RedisRateLimiter) isAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := l.now()
	nowMs := now.UnixMilli()
	windowStart := nowMs - window.Milliseconds()
	member := strconv.FormatInt(now.UnixNano(), 10)

	result, err := slidingWindow.Run(ctx, l.rdb, []string{key}, nowMs, windowStart, limit, window.Milliseconds(), member).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

// KeyByIP keys on the connection's host. Forwarding headers are client
// controlled and only reach RemoteAddr through a trusted RealIP rewrite.
func KeyByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
