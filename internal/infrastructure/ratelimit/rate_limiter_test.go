package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func newTestLimiter() (*RateLimiter, clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewRateLimiter(clock, map[string]Policy{
		ActionSendMessage: {Limit: 3, Window: time.Minute},
		ActionLogin:       {Limit: 1, Window: 10 * time.Second},
	}), clock
}

func TestAllowWithinWindow(t *testing.T) {
	rl, clock := newTestLimiter()

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("alice", ActionSendMessage)
		assert.True(t, ok, "message %d", i)
	}

	ok, wait := rl.Allow("alice", ActionSendMessage)
	assert.False(t, ok)
	assert.InDelta(t, float64(20*time.Second), float64(wait), float64(time.Millisecond))

	clock.Advance(21 * time.Second)
	ok, _ = rl.Allow("alice", ActionSendMessage)
	assert.True(t, ok)
}

func TestKeysAndActionsAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter()

	ok, _ := rl.Allow("10.0.0.1", ActionLogin)
	assert.True(t, ok)
	ok, _ = rl.Allow("10.0.0.1", ActionLogin)
	assert.False(t, ok)

	ok, _ = rl.Allow("10.0.0.2", ActionLogin)
	assert.True(t, ok)
	ok, _ = rl.Allow("10.0.0.1", ActionSendMessage)
	assert.True(t, ok)
}

func TestDeniedAttemptsDoNotConsumeTokens(t *testing.T) {
	rl, clock := newTestLimiter()

	rl.Allow("bob", ActionLogin)
	for i := 0; i < 5; i++ {
		ok, _ := rl.Allow("bob", ActionLogin)
		assert.False(t, ok)
	}

	clock.Advance(11 * time.Second)
	ok, _ := rl.Allow("bob", ActionLogin)
	assert.True(t, ok)
}

func TestUnknownActionUsesDefaultPolicy(t *testing.T) {
	rl, _ := newTestLimiter()

	tokens, max := rl.GetStatus("carol", "typing")
	assert.Equal(t, DefaultPolicy.Limit, max)
	assert.Equal(t, DefaultPolicy.Limit, tokens)

	for i := 0; i < DefaultPolicy.Limit; i++ {
		ok, _ := rl.Allow("carol", "typing")
		assert.True(t, ok)
	}
	ok, _ := rl.Allow("carol", "typing")
	assert.False(t, ok)
}

func TestResetAndCleanup(t *testing.T) {
	rl, clock := newTestLimiter()

	rl.Allow("dave", ActionLogin)
	ok, _ := rl.Allow("dave", ActionLogin)
	assert.False(t, ok)

	rl.Reset()
	ok, _ = rl.Allow("dave", ActionLogin)
	assert.True(t, ok)

	clock.Advance(2 * time.Hour)
	rl.Allow("erin", ActionLogin)
	assert.Equal(t, 1, rl.Cleanup(time.Hour))

	tokens, _ := rl.GetStatus("erin", ActionLogin)
	assert.Equal(t, 0, tokens)
}
