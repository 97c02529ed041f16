package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"dubnacoin/internal/logger"
	"dubnacoin/internal/metrics"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// maxLocalKeys caps the in-process limiter table; it is reset when full.
const maxLocalKeys = 10000

// RateLimiter is a fixed-window limiter backed by Redis INCR/EXPIRE so
// limits hold across instances. Without Redis, or when Redis errors, it
// falls back to per-process token buckets.
type RateLimiter struct {
	client *redis.Client

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{local: make(map[string]*rate.Limiter)}
}

// ConnectRedis attaches a Redis client. On ping failure the limiter keeps
// using the in-process fallback and the error is returned for logging.
func (l *RateLimiter) ConnectRedis(ctx context.Context, addr, password string, db int) error {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return err
	}
	l.client = client
	return nil
}

// Redis returns the attached client, or nil.
func (l *RateLimiter) Redis() *redis.Client {
	return l.client
}

// Ping checks the Redis connection. Without Redis there is nothing to check.
func (l *RateLimiter) Ping(ctx context.Context) error {
	if l.client == nil {
		return nil
	}
	return l.client.Ping(ctx).Err()
}

func (l *RateLimiter) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

// ByIP limits each client address to max requests per window.
func (l *RateLimiter) ByIP(scope string, max int, window time.Duration) gin.HandlerFunc {
	return l.limit(scope, max, window, func(c *gin.Context) (string, bool) {
		return c.ClientIP(), true
	})
}

// ByPlayer limits each authenticated player. It must run after JWT.
func (l *RateLimiter) ByPlayer(scope string, max int, window time.Duration) gin.HandlerFunc {
	return l.limit(scope, max, window, func(c *gin.Context) (string, bool) {
		id, ok := PlayerID(c)
		if !ok {
			return "", false
		}
		return strconv.FormatInt(id, 10), true
	})
}

func (l *RateLimiter) limit(scope string, max int, window time.Duration, ident func(*gin.Context) (string, bool)) gin.HandlerFunc {
	windowSec := strconv.FormatInt(int64(window.Seconds()), 10)

	return func(c *gin.Context) {
		if max <= 0 || window <= 0 {
			c.Next()
			return
		}

		id, ok := ident(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		key := "rl:" + scope + ":" + windowSec + ":" + id
		allowed, remaining := l.allow(c.Request.Context(), key, max, window)

		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		if remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		if !allowed {
			metrics.RLBlocked.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		metrics.RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}

// allow reports whether key may proceed and, on the Redis path, how many
// requests remain in the window (-1 when unknown).
func (l *RateLimiter) allow(ctx context.Context, key string, max int, window time.Duration) (bool, int) {
	if l.client != nil {
		val, err := l.client.Incr(ctx, key).Result()
		if err == nil {
			if val == 1 {
				l.client.Expire(ctx, key, window)
			}
			remaining := int64(max) - val
			if remaining < 0 {
				remaining = 0
			}
			return val <= int64(max), int(remaining)
		}
		logger.FromContext(ctx).Warn("rate limiter redis error, using local limiter", "error", err)
	}
	return l.localLimiter(key, max, window).Allow(), -1
}

func (l *RateLimiter) localLimiter(key string, max int, window time.Duration) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.local[key]
	if !ok {
		if len(l.local) >= maxLocalKeys {
			l.local = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Every(window/time.Duration(max)), max)
		l.local[key] = lim
	}
	return lim
}
