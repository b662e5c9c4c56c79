// Package ratelimit throttles by arbitrary key: client IP for the HTTP
// surface, phone number for OTP sends.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// Keyed keeps one token bucket per key in memory and forgets idle keys.
type Keyed struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	idle     time.Duration
	stop     chan struct{}
	once     sync.Once
}

func NewKeyed(perMinute, burst int) *Keyed {
	if burst <= 0 {
		burst = 1
	}
	k := &Keyed{
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: burst,
		idle:  5 * time.Minute,
		stop:  make(chan struct{}),
	}
	go k.cleanup(time.Minute)
	return k
}

func (k *Keyed) Allow(_ context.Context, key string) (bool, error) {
	return k.get(key).Allow(), nil
}

func (k *Keyed) get(key string) *rate.Limiter {
	now := time.Now()
	if v, ok := k.visitors.Load(key); ok {
		vi := v.(*visitor)
		vi.mu.Lock()
		vi.lastSeen = now
		vi.mu.Unlock()
		return vi.limiter
	}
	v, _ := k.visitors.LoadOrStore(key, &visitor{limiter: rate.NewLimiter(k.rps, k.burst), lastSeen: now})
	return v.(*visitor).limiter
}

func (k *Keyed) cleanup(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-k.stop:
			return
		case <-t.C:
			cutoff := time.Now().Add(-k.idle)
			k.visitors.Range(func(key, v interface{}) bool {
				vi := v.(*visitor)
				vi.mu.Lock()
				stale := vi.lastSeen.Before(cutoff)
				vi.mu.Unlock()
				if stale {
					k.visitors.Delete(key)
				}
				return true
			})
		}
	}
}

// Close stops the cleanup goroutine.
func (k *Keyed) Close() {
	k.once.Do(func() { close(k.stop) })
}

// Redis is a fixed-window counter shared by every instance.
type Redis struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedis(rdb *redis.Client, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := fmt.Sprintf("%s:%s", r.prefix, key)
	count, err := r.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		r.rdb.Expire(ctx, k, r.window)
	}
	return count <= int64(r.limit), nil
}
