package auth

import (
	"sync"
	"time"
)

// maxTrackedKeys bounds the bucket map before fully refilled buckets are swept.
const maxTrackedKeys = 4096

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// Throttle limits failed login attempts per key, usually the client host,
// with a token bucket: every failure consumes a token and one token returns
// per refill interval. A key with no tokens left is refused until a token
// returns. It is safe for concurrent use.
type Throttle struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	interval time.Duration
	now      func() time.Time
}

// NewThrottle allows attempts consecutive failures per key, then one more
// per interval. It panics if attempts < 1 or interval <= 0.
func NewThrottle(attempts int, interval time.Duration) *Throttle {
	if attempts < 1 {
		panic("auth.NewThrottle: attempts must be at least 1")
	}
	if interval <= 0 {
		panic("auth.NewThrottle: interval must be > 0")
	}
	return &Throttle{
		buckets:  make(map[string]*bucket),
		capacity: attempts,
		interval: interval,
		now:      time.Now,
	}
}

// Allow reports whether key may attempt a login. When it may not, retryAfter
// is the time until the next token returns.
func (t *Throttle) Allow(key string) (ok bool, retryAfter time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, exists := t.buckets[key]
	if !exists {
		return true, 0
	}
	if t.refill(b, now) {
		delete(t.buckets, key)
		return true, 0
	}
	if b.tokens > 0 {
		return true, 0
	}
	return false, b.lastRefill.Add(t.interval).Sub(now)
}

// Fail records a failed attempt for key.
func (t *Throttle) Fail(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, exists := t.buckets[key]
	if !exists {
		if len(t.buckets) >= maxTrackedKeys {
			t.sweep(now)
		}
		b = &bucket{tokens: t.capacity, lastRefill: now}
		t.buckets[key] = b
	} else {
		t.refill(b, now)
	}
	if b.tokens > 0 {
		b.tokens--
	}
}

// Reset forgets key's failures, typically after a successful login.
func (t *Throttle) Reset(key string) {
	t.mu.Lock()
	delete(t.buckets, key)
	t.mu.Unlock()
}

// refill adds the tokens earned since the last refill and reports whether
// the bucket is full again. Must be called with mu held.
func (t *Throttle) refill(b *bucket, now time.Time) bool {
	intervals := int(min(int64(now.Sub(b.lastRefill)/t.interval), int64(t.capacity)))
	if intervals > 0 {
		b.tokens = min(b.tokens+intervals, t.capacity)
		b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * t.interval)
	}
	return b.tokens >= t.capacity
}

// sweep drops buckets that have fully refilled. Must be called with mu held.
func (t *Throttle) sweep(now time.Time) {
	for key, b := range t.buckets {
		if t.refill(b, now) {
			delete(t.buckets, key)
		}
	}
}
