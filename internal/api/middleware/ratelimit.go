package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore counts requests per key within a fixed time window. The
// count resets when the window elapses.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter applies a fixed-window per-client-IP request ceiling. The
// limiter is advisory: when the store fails the request is allowed through.
type RateLimiter struct {
	store   CounterStore
	ceiling int64
	window  time.Duration
}

func NewRateLimiter(store CounterStore, ceiling int, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, ceiling: int64(ceiling), window: window}
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		count, err := rl.store.Incr(r.Context(), "ratelimit:"+ip, rl.window)
		if err == nil && count > rl.ceiling {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window/time.Second)))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded, try again later"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware has already rewritten RemoteAddr when the
	// request came through a proxy.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RedisCounter keeps window counts in redis (INCR plus EXPIRE on the first
// hit), so the limit holds across server instances.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

type windowEntry struct {
	count       int64
	windowStart time.Time
}

// MemoryCounter is the in-process fallback when redis is unavailable. It is
// mutex-guarded but still advisory only: counts are not shared across
// instances and vanish on restart.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	mc := &MemoryCounter{
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
	go mc.cleanup()
	return mc
}

func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.entries[key]
	if !ok || now.Sub(e.windowStart) >= window {
		e = &windowEntry{windowStart: now}
		c.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (c *MemoryCounter) cleanup() {
	for {
		time.Sleep(time.Minute)
		c.mu.Lock()
		for key, e := range c.entries {
			if c.now().Sub(e.windowStart) > 3*time.Minute {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
