package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleAfter = 30 * time.Minute

// threadLimiter keeps one token bucket per thread id. Buckets idle for
// limiterIdleAfter are dropped on the next sweep.
type threadLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*threadBucket
	every     time.Duration
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type threadBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newThreadLimiter(perMinute int, now func() time.Time) *threadLimiter {
	if perMinute <= 0 {
		return nil
	}
	burst := perMinute / 6
	if burst < 1 {
		burst = 1
	}
	return &threadLimiter{
		limiters: make(map[string]*threadBucket),
		every:    time.Minute / time.Duration(perMinute),
		burst:    burst,
		now:      now,
	}
}

// Allow reports whether threadID may send another message now. A nil
// limiter allows everything.
func (l *threadLimiter) Allow(threadID string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdleAfter {
		for id, b := range l.limiters {
			if now.Sub(b.lastSeen) > limiterIdleAfter {
				delete(l.limiters, id)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.limiters[threadID]
	if !ok {
		b = &threadBucket{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.limiters[threadID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}
