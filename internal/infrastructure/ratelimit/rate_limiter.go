package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	ActionSendMessage = "send_message"
	ActionRequest     = "request"
	ActionLogin       = "login"
)

// Policy allows Limit events per Window, refilled evenly across the window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicy applies to actions without a configured policy: 20 per minute.
var DefaultPolicy = Policy{Limit: 20, Window: time.Minute}

func (p Policy) limiter() *rate.Limiter {
	if p.Limit <= 0 || p.Window <= 0 {
		p = DefaultPolicy
	}
	return rate.NewLimiter(rate.Every(p.Window/time.Duration(p.Limit)), p.Limit)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key and action. It is a best-effort
// throttle; the store's access rules remain the authoritative check.
type RateLimiter struct {
	clock    clockwork.Clock
	policies map[string]Policy
	buckets  map[string]*bucket
	mutex    sync.Mutex
}

func NewRateLimiter(clock clockwork.Clock, policies map[string]Policy) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	copied := make(map[string]Policy, len(policies))
	for action, p := range policies {
		copied[action] = p
	}
	return &RateLimiter{
		clock:    clock,
		policies: copied,
		buckets:  make(map[string]*bucket),
	}
}

func (rl *RateLimiter) policy(action string) Policy {
	if p, ok := rl.policies[action]; ok {
		return p
	}
	return DefaultPolicy
}

// Allow consumes one token for key under action's policy. When denied it
// reports how long until the next token is available.
func (rl *RateLimiter) Allow(key, action string) (bool, time.Duration) {
	now := rl.clock.Now()
	id := key + ":" + action

	rl.mutex.Lock()
	b, exists := rl.buckets[id]
	if !exists {
		b = &bucket{limiter: rl.policy(action).limiter()}
		rl.buckets[id] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, rl.policy(action).Window
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// GetStatus returns the tokens left for key and the policy's capacity.
func (rl *RateLimiter) GetStatus(key, action string) (tokens int, maxTokens int) {
	maxTokens = rl.policy(action).Limit

	rl.mutex.Lock()
	b, exists := rl.buckets[key+":"+action]
	rl.mutex.Unlock()

	if !exists {
		return maxTokens, maxTokens
	}
	return int(b.limiter.TokensAt(rl.clock.Now())), maxTokens
}

// Reset drops every bucket.
func (rl *RateLimiter) Reset() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.buckets = make(map[string]*bucket)
}

// Cleanup removes buckets that have not been used for idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.clock.Now()
	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context, interval, idle time.Duration) {
	ticker := rl.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				rl.Cleanup(idle)
			}
		}
	}()
}
