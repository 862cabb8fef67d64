package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Jobin06/EV-Fleet-MVP/pkg/redis"
)

// LoginLimiter throttles login attempts per client
type LoginLimiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
	Reset(ctx context.Context, clientID string) error
}

// RedisLimiter shares the sliding window across server instances
type RedisLimiter struct {
	limiter *redis.RateLimiter
	limit   int
	window  time.Duration
}

// NewRedisLimiter creates a Redis-backed login limiter
func NewRedisLimiter(limiter *redis.RateLimiter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{limiter: limiter, limit: limit, window: window}
}

// Allow implements LoginLimiter
func (r *RedisLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	allowed, _, err := r.limiter.Allow(ctx, redis.LoginRateLimit(clientID, r.limit, r.window))
	return allowed, err
}

// Reset implements LoginLimiter
func (r *RedisLimiter) Reset(ctx context.Context, clientID string) error {
	return r.limiter.Reset(ctx, redis.LoginRateLimit(clientID, r.limit, r.window).Key)
}

// maxLocalBuckets triggers an inline sweep before the bucket map grows further
const maxLocalBuckets = 10000

// LocalLimiter keeps one token bucket per client in memory
type LocalLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewLocalLimiter allows attempts per window with the same burst
func NewLocalLimiter(attempts int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Every(window / time.Duration(attempts)),
		burst:   attempts,
		now:     time.Now,
	}
}

// Allow implements LoginLimiter
func (l *LocalLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[clientID]
	if !ok {
		if len(l.buckets) >= maxLocalBuckets {
			l.sweep(now)
		}
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[clientID] = b
	}
	return b.AllowN(now, 1), nil
}

// Sweep drops buckets that have refilled completely and returns how many went.
// A full bucket behaves exactly like a missing one.
func (l *LocalLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.sweep(l.now())
}

func (l *LocalLimiter) sweep(now time.Time) int {
	removed := 0
	for id, b := range l.buckets {
		if b.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.buckets)
}

// Reset implements LoginLimiter
func (l *LocalLimiter) Reset(ctx context.Context, clientID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, clientID)
	return nil
}

// NewLoginLimiter picks the Redis limiter when Redis is live
func NewLoginLimiter(client *redis.Client, attempts int, window time.Duration) LoginLimiter {
	if client != nil && client.Enabled() {
		return NewRedisLimiter(redis.NewRateLimiter(client, "fleet"), attempts, window)
	}
	return NewLocalLimiter(attempts, window)
}
