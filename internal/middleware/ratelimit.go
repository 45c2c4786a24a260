package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const tooManyRequestsMessage = "Too many requests, please try again later"

// RateLimitConfig describes one fixed window.
type RateLimitConfig struct {
	Limit     int
	Window    time.Duration
	KeyPrefix string
}

// Quota is the state of a window after counting one request.
type Quota struct {
	Limit   int
	Count   int64
	ResetIn time.Duration
}

// Allowed reports whether the counted request fits in the window.
func (q Quota) Allowed() bool {
	return q.Count <= int64(q.Limit)
}

// Remaining is never negative.
func (q Quota) Remaining() int {
	if left := int64(q.Limit) - q.Count; left > 0 {
		return int(left)
	}
	return 0
}

// RateLimiter counts requests per client in Redis using fixed windows.
type RateLimiter struct {
	client redis.Cmdable
	config RateLimitConfig
	logger *zap.Logger
}

func NewRateLimiter(client redis.Cmdable, config RateLimitConfig, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{client: client, config: config, logger: logger}
}

// Take counts one request for client. The window starts on the first request
// and any counter found without an expiry gets one.
func (l *RateLimiter) Take(ctx context.Context, client string) (Quota, error) {
	key := l.config.KeyPrefix + ":" + client

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return Quota{}, err
	}

	quota := Quota{Limit: l.config.Limit, Count: incr.Val(), ResetIn: ttl.Val()}
	if quota.ResetIn <= 0 {
		if err := l.client.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return Quota{}, err
		}
		quota.ResetIn = l.config.Window
	}

	return quota, nil
}

// Middleware rejects requests over the limit with 429. When Redis cannot be
// reached the request is let through.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)

		quota, err := l.Take(r.Context(), client)
		if err != nil {
			l.logger.Error("Rate limiter unavailable",
				zap.Error(err),
				zap.String("prefix", l.config.KeyPrefix),
			)
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(quota.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining()))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(quota.ResetIn).Unix(), 10))

		if !quota.Allowed() {
			l.logger.Warn("Rate limit exceeded",
				zap.String("client_ip", client),
				zap.String("path", r.URL.Path),
				zap.Int64("count", quota.Count),
			)
			h.Set("Retry-After", strconv.Itoa(int(quota.ResetIn.Round(time.Second).Seconds())))
			RespondWithError(w, http.StatusTooManyRequests, tooManyRequestsMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which chi's RealIP has already
// rewritten from proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
