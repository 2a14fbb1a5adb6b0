package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-user failed-attempt throttle.
type RateLimitConfig struct {
	// FailuresPerMinute is the sustained rate of tolerated failures.
	// Zero disables throttling.
	FailuresPerMinute int

	// Burst is the number of failures tolerated back to back.
	Burst int
}

// RateLimiterRegistry keeps one failure limiter per canonical username.
// Only failures consume tokens; a user is throttled once its bucket is
// empty and unthrottled as it refills.
type RateLimiterRegistry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiterRegistry creates a registry. It returns nil when cfg
// disables throttling; a nil registry allows everything.
func NewRateLimiterRegistry(cfg RateLimitConfig) *RateLimiterRegistry {
	if cfg.FailuresPerMinute <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.FailuresPerMinute
	}
	return &RateLimiterRegistry{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(cfg.FailuresPerMinute)),
		burst:    burst,
	}
}

// getOrCreate retrieves an existing limiter or creates a new one.
func (r *RateLimiterRegistry) getOrCreate(username string) *rate.Limiter {
	r.mu.RLock()
	l, ok := r.limiters[username]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[username]; ok {
		return l
	}
	l = rate.NewLimiter(r.limit, r.burst)
	r.limiters[username] = l
	return l
}

// Allowed reports whether username may attempt to authenticate now.
func (r *RateLimiterRegistry) Allowed(username string) bool {
	if r == nil {
		return true
	}
	r.mu.RLock()
	l, ok := r.limiters[username]
	r.mu.RUnlock()
	return !ok || l.Tokens() >= 1
}

// Failed records a failed attempt for username.
func (r *RateLimiterRegistry) Failed(username string) {
	if r == nil {
		return
	}
	r.getOrCreate(username).Allow()
}

// Reset forgets username, typically after a successful login.
func (r *RateLimiterRegistry) Reset(username string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.limiters, username)
	r.mu.Unlock()
}

// Sweep drops limiters whose bucket has refilled and returns how many
// were dropped.
func (r *RateLimiterRegistry) Sweep() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for u, l := range r.limiters {
		if l.Tokens() >= float64(r.burst) {
			delete(r.limiters, u)
			n++
		}
	}
	return n
}

// Len returns the number of tracked users.
func (r *RateLimiterRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}
