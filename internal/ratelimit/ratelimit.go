package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"beanhealth/internal/config"
)

// Limiter decides whether a caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New returns a Redis-backed limiter when cfg.RedisURL is set and an
// in-process token bucket otherwise. A zero PerMinute disables limiting.
func New(cfg config.RateLimitConfig, logger *zap.Logger) (Limiter, error) {
	if cfg.PerMinute <= 0 {
		return Unlimited{}, nil
	}
	if cfg.RedisURL == "" {
		return NewMemoryLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), cfg.Burst), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: invalid REDIS_URL: %w", err)
	}
	return NewRedisLimiter(redis.NewClient(opts), cfg.PerMinute, time.Minute, logger), nil
}

// Unlimited allows every request.
type Unlimited struct{}

// Allow always returns true.
func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

// MemoryLimiter keeps one token bucket per key in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter allows limit events per second with the given burst
// for each key.
func NewMemoryLimiter(limit rate.Limit, burst int) *MemoryLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &MemoryLimiter{
		limiters: make(map[string]*entry),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow reports whether the request from key is within the rate limit.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Close stops the background eviction loop.
func (l *MemoryLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evict(l.now().Add(-10 * time.Minute))
		}
	}
}

func (l *MemoryLimiter) evict(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

// RedisLimiter counts requests per key in a fixed window shared by every
// API instance.
type RedisLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisLimiter allows limit requests per key in each window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *RedisLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{
		redis:  client,
		limit:  limit,
		window: window,
		prefix: "beanhealth:ratelimit:",
		logger: logger,
	}
}

// Allow increments the counter for key. The window expiry is set in the
// same transaction and only when the key has none, so a counter can never
// outlive its window. Redis failures let the request through and are
// returned alongside true.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + key

	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing request", zap.String("key", key), zap.Error(err))
		return true, fmt.Errorf("ratelimit: incr: %w", err)
	}

	return incr.Val() <= int64(l.limit), nil
}

// Close releases the Redis connection pool.
func (l *RedisLimiter) Close() error {
	return l.redis.Close()
}
